package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestClientFetch(t *testing.T) {
	t.Run("GET merges form into the query", func(t *testing.T) {
		var gotQuery url.Values
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		c := NewClient(&Config{Timeout: 5 * time.Second, UserAgent: "test"})
		resp, err := c.Fetch(context.Background(), Request{
			URL:  srv.URL + "/?keep=1",
			Form: url.Values{"q": []string{"<payload>"}},
		})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("unexpected status %d", resp.StatusCode)
		}
		if gotQuery.Get("q") != "<payload>" {
			t.Errorf("form value missing from query: %v", gotQuery)
		}
		if gotQuery.Get("keep") != "1" {
			t.Errorf("existing query parameter lost: %v", gotQuery)
		}
		if resp.Duration <= 0 {
			t.Error("expected a measured duration")
		}
	})

	t.Run("POST sends an urlencoded body", func(t *testing.T) {
		var gotBody, gotCT string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			gotBody = r.PostForm.Get("user")
			gotCT = r.Header.Get("Content-Type")
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		c := NewClient(&Config{Timeout: 5 * time.Second, UserAgent: "test"})
		_, err := c.Fetch(context.Background(), Request{
			Method: http.MethodPost,
			URL:    srv.URL,
			Form:   url.Values{"user": []string{"admin' --"}},
		})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if gotBody != "admin' --" {
			t.Errorf("unexpected form body %q", gotBody)
		}
		if gotCT != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", gotCT)
		}
	})

	t.Run("custom headers override defaults", func(t *testing.T) {
		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.UserAgent()
		}))
		defer srv.Close()

		c := NewClient(&Config{Timeout: 5 * time.Second, UserAgent: "default-agent"})
		hdr := http.Header{}
		hdr.Set("User-Agent", "<script>alert(1)</script>")
		if _, err := c.Fetch(context.Background(), Request{URL: srv.URL, Header: hdr}); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if gotUA != "<script>alert(1)</script>" {
			t.Errorf("header not injected, got %q", gotUA)
		}
	})

	t.Run("redirects record the effective URL", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final", http.StatusFound)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "landed")
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := NewClient(&Config{Timeout: 5 * time.Second, FollowRedirects: true, UserAgent: "test"})
		resp, err := c.Fetch(context.Background(), Request{URL: srv.URL + "/start"})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !strings.HasSuffix(resp.URL, "/final") {
			t.Errorf("expected effective URL /final, got %s", resp.URL)
		}
	})

	t.Run("body reads are bounded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, strings.Repeat("A", 4096))
		}))
		defer srv.Close()

		c := NewClient(&Config{Timeout: 5 * time.Second, UserAgent: "test", MaxBodySize: 1024})
		resp, err := c.Fetch(context.Background(), Request{URL: srv.URL})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(resp.Body) > 1024 {
			t.Errorf("body not truncated: %d bytes", len(resp.Body))
		}
	})

	t.Run("context cancellation aborts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		c := NewClient(&Config{Timeout: 10 * time.Second, UserAgent: "test"})
		if _, err := c.Fetch(ctx, Request{URL: srv.URL}); err == nil {
			t.Error("expected a cancellation error")
		}
	})
}

func TestRendererRejectsNonGET(t *testing.T) {
	r := NewRenderer(nil)
	defer r.Close()
	_, err := r.Fetch(context.Background(), Request{Method: http.MethodPost, URL: "http://x/"})
	if err != ErrRenderMethod {
		t.Errorf("expected ErrRenderMethod, got %v", err)
	}
}
