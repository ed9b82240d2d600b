package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wvscan/wvscan/pkg/fetcher"
)

func testClient() *fetcher.Client {
	cfg := fetcher.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	return fetcher.NewClient(cfg)
}

func quickConfig() *Config {
	cfg := DefaultConfig()
	cfg.Delay = 0
	return cfg
}

func TestDiscover(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<a href="/products?id=1">products</a>
			<a href="/about">about</a>
			<a href="https://elsewhere.example/evil">offsite</a>
			<form action="/search" method="get"><input name="q" type="text"></form>
		</body></html>`)
	})
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<form action="/login" method="post">
				<input name="user" type="text">
				<input name="pass" type="password">
			</form>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(quickConfig(), testClient(), nil)
	targets, stats, err := c.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if stats.PagesVisited == 0 {
		t.Fatal("expected pages to be visited")
	}
	if stats.FormsDiscovered < 2 {
		t.Errorf("expected at least 2 forms, got %d", stats.FormsDiscovered)
	}

	byKey := map[string]InjectionTarget{}
	for _, target := range targets {
		byKey[target.Parameter+"|"+string(target.Location)] = target
	}

	if _, ok := byKey["id|query"]; !ok {
		t.Error("expected query target for link parameter id")
	}
	if _, ok := byKey["q|query"]; !ok {
		t.Error("expected query target for GET form field q")
	}
	if got, ok := byKey["pass|body"]; !ok {
		t.Error("expected body target for POST form field pass")
	} else {
		if got.Method != http.MethodPost {
			t.Errorf("expected POST for login form, got %s", got.Method)
		}
		if !strings.Contains(got.Hint, "password") {
			t.Errorf("expected the input type in the hint, got %q", got.Hint)
		}
	}
	if _, ok := byKey["User-Agent|header"]; !ok {
		t.Error("expected implicit header target for each page")
	}

	for _, target := range targets {
		if strings.Contains(target.URL, "elsewhere.example") {
			t.Errorf("off-origin target leaked into results: %s", target.URL)
		}
	}
}

func TestDiscoverDedup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		// Same parameter reachable through two links.
		fmt.Fprint(w, `<html><body>
			<a href="/?id=1">one</a>
			<a href="/?id=2">two</a>
		</body></html>`)
	}))
	defer srv.Close()

	c := New(quickConfig(), testClient(), nil)
	targets, _, err := c.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	seen := map[string]int{}
	for _, target := range targets {
		seen[target.Key()]++
	}
	for key, n := range seen {
		if n > 1 {
			t.Errorf("duplicate target emitted %d times: %q", n, key)
		}
	}
}

func TestDiscoverPartialFailures(t *testing.T) {
	var pages []string
	for i := 0; i < 10; i++ {
		pages = append(pages, fmt.Sprintf("/page%d", i))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		var b strings.Builder
		b.WriteString("<html><body>")
		for _, p := range pages {
			fmt.Fprintf(&b, `<a href="%s?n=1">x</a>`, p)
		}
		b.WriteString("</body></html>")
		fmt.Fprint(w, b.String())
	})
	for i, p := range pages {
		broken := i < 3
		mux.HandleFunc(p, func(w http.ResponseWriter, r *http.Request) {
			if broken {
				conn, _, err := w.(http.Hijacker).Hijack()
				if err == nil {
					conn.Close()
				}
				return
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body>fine</body></html>")
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var logLines []string
	logf := func(format string, args ...any) {
		logLines = append(logLines, fmt.Sprintf(format, args...))
	}

	c := New(quickConfig(), testClient(), logf)
	targets, stats, err := c.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("individual page failures must not fail the crawl: %v", err)
	}

	// Seed plus the 7 healthy pages.
	if stats.PagesVisited != 8 {
		t.Errorf("expected 8 pages visited, got %d", stats.PagesVisited)
	}
	if len(targets) == 0 {
		t.Error("expected targets from the surviving pages")
	}

	var failures int
	for _, line := range logLines {
		if strings.Contains(line, "fetch failed") {
			failures++
		}
	}
	if failures != 3 {
		t.Errorf("expected 3 failure log lines, got %d", failures)
	}
}

func TestDiscoverSeedUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	c := New(quickConfig(), testClient(), nil)
	_, _, err := c.Discover(context.Background(), srv.URL)
	if !errors.Is(err, ErrSeedUnreachable) {
		t.Errorf("expected ErrSeedUnreachable, got %v", err)
	}

	t.Run("garbage seed URL", func(t *testing.T) {
		c := New(quickConfig(), testClient(), nil)
		_, _, err := c.Discover(context.Background(), "not a url")
		if !errors.Is(err, ErrSeedUnreachable) {
			t.Errorf("expected ErrSeedUnreachable, got %v", err)
		}
	})
}

func TestDiscoverDepthLimit(t *testing.T) {
	mux := http.NewServeMux()
	for i := 0; i < 5; i++ {
		depth := i
		path := "/"
		if depth > 0 {
			path = fmt.Sprintf("/d%d", depth)
		}
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><a href="/d%d">next</a></body></html>`, depth+1)
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := quickConfig()
	cfg.MaxDepth = 1
	c := New(cfg, testClient(), nil)
	_, stats, err := c.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	// Seed (depth 0) and one hop.
	if stats.PagesVisited > 2 {
		t.Errorf("depth 1 crawl visited %d pages", stats.PagesVisited)
	}
}

func TestDiscoverOneShot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	c := New(quickConfig(), testClient(), nil)
	if _, _, err := c.Discover(context.Background(), srv.URL); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, _, err := c.Discover(context.Background(), srv.URL); err == nil {
		t.Error("expected an error reusing a crawler")
	}
}
