package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/fetcher"
	"github.com/wvscan/wvscan/pkg/payloads"
)

// fakeFetcher scripts responses per URL prefix without a network.
type fakeFetcher struct {
	mu      sync.Mutex
	handler func(req fetcher.Request) (*fetcher.Response, error)
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetcher.Request) (*fetcher.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.handler(req)
}

func htmlResponse(url, body string) *fetcher.Response {
	return &fetcher.Response{
		URL:        url,
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       []byte(body),
		Duration:   time.Millisecond,
	}
}

func testOptions(f fetcher.Fetcher) Options {
	return Options{
		Fetcher:   f,
		Catalogue: payloads.NewCatalogue(payloads.Builtin()),
		Crawl: &crawler.Config{
			MaxDepth: 1,
			MaxPages: 10,
			Timeout:  30 * time.Second,
		},
		Workers:      2,
		InjectBudget: 30 * time.Second,
	}
}

func waitDone(t *testing.T, s *Session) Snapshot {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("session did not finish")
	}
	return s.Snapshot()
}

func TestLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body>hello %s</body></html>", r.URL.Query().Get("q"))
	}))
	defer srv.Close()

	client := fetcher.NewClient(&fetcher.Config{Timeout: 5 * time.Second, FollowRedirects: true, UserAgent: "test"})
	s := New("scan-1", srv.URL+"/?q=hi", testOptions(client))

	if got := s.Snapshot().State; got != StateQueued {
		t.Fatalf("expected queued before start, got %s", got)
	}

	s.Start(context.Background())
	snap := waitDone(t, s)

	if snap.State != StateFinished {
		t.Fatalf("expected finished, got %s (%s)", snap.State, snap.LastError)
	}
	if snap.Progress != 100 {
		t.Errorf("expected progress 100 at finish, got %v", snap.Progress)
	}
	if snap.Counters.Pages == 0 {
		t.Error("expected visited pages in counters")
	}
	if snap.Counters.Findings != len(snap.Findings) {
		t.Errorf("findings counter %d != %d findings", snap.Counters.Findings, len(snap.Findings))
	}
	if snap.Counters.Probes == 0 {
		t.Error("expected probe requests in counters")
	}
	if len(snap.Targets) == 0 {
		t.Error("expected discovered targets in the snapshot")
	}
	if snap.CompletedAt.IsZero() {
		t.Error("expected a completion timestamp")
	}
	if len(snap.Log) == 0 {
		t.Error("expected log lines")
	}
}

func TestIdempotentStart(t *testing.T) {
	ff := &fakeFetcher{handler: func(req fetcher.Request) (*fetcher.Response, error) {
		return htmlResponse(req.URL, "<html><body>static</body></html>"), nil
	}}

	s := New("scan-2", "http://target.test/", testOptions(ff))
	for i := 0; i < 5; i++ {
		s.Start(context.Background())
	}
	snap := waitDone(t, s)

	if snap.State != StateFinished {
		t.Fatalf("expected finished, got %s", snap.State)
	}
	var started int
	for _, line := range snap.Log {
		if strings.Contains(line, "scan started") {
			started++
		}
	}
	if started != 1 {
		t.Errorf("expected exactly one start, log shows %d", started)
	}
}

func TestSeedUnreachableFails(t *testing.T) {
	ff := &fakeFetcher{handler: func(fetcher.Request) (*fetcher.Response, error) {
		return nil, errors.New("connection refused")
	}}

	s := New("scan-3", "http://unreachable.test/", testOptions(ff))
	s.Start(context.Background())
	snap := waitDone(t, s)

	if snap.State != StateError {
		t.Fatalf("expected error state, got %s", snap.State)
	}
	if snap.LastError == "" {
		t.Error("expected last_error to be set")
	}
}

func TestCancel(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	ff := &fakeFetcher{handler: func(req fetcher.Request) (*fetcher.Response, error) {
		once.Do(func() {}) // first fetch must succeed so the crawl starts
		select {
		case <-release:
		case <-time.After(50 * time.Millisecond):
		}
		return htmlResponse(req.URL, `<html><body><a href="/next?p=1">x</a></body></html>`), nil
	}}

	s := New("scan-4", "http://slow.test/", testOptions(ff))
	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	s.Cancel("operator said stop")
	close(release)

	snap := waitDone(t, s)
	if snap.State != StateError {
		t.Fatalf("expected error state after cancel, got %s", snap.State)
	}
	if !strings.Contains(snap.LastError, "operator said stop") {
		t.Errorf("expected cancel reason in last_error, got %q", snap.LastError)
	}
}

func TestProgressMonotonic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<a href="/?a=1">a</a><a href="/?b=2">b</a><a href="/?c=3">c</a>
		</body></html>`)
	}))
	defer srv.Close()

	client := fetcher.NewClient(&fetcher.Config{Timeout: 5 * time.Second, FollowRedirects: true, UserAgent: "test"})
	s := New("scan-5", srv.URL, testOptions(client))

	events := s.Subscribe()
	s.Start(context.Background())

	last := -1.0
	for ev := range events {
		if ev.Kind != EventStatus || ev.Status.Progress == nil {
			continue
		}
		if *ev.Status.Progress < last {
			t.Errorf("progress went backwards: %v after %v", *ev.Status.Progress, last)
		}
		last = *ev.Status.Progress
	}
	snap := waitDone(t, s)
	if snap.State != StateFinished {
		t.Fatalf("expected finished, got %s (%s)", snap.State, snap.LastError)
	}
}

func TestTerminalStateIsFinal(t *testing.T) {
	ff := &fakeFetcher{handler: func(req fetcher.Request) (*fetcher.Response, error) {
		return htmlResponse(req.URL, "<html><body>x</body></html>"), nil
	}}

	s := New("scan-6", "http://target.test/", testOptions(ff))
	s.Start(context.Background())
	snap := waitDone(t, s)
	if snap.State != StateFinished {
		t.Fatalf("expected finished, got %s", snap.State)
	}

	// Late cancels must not flip a terminal session.
	s.Cancel("too late")
	time.Sleep(20 * time.Millisecond)
	if got := s.Snapshot().State; got != StateFinished {
		t.Errorf("terminal state changed to %s", got)
	}

	if ch := s.Subscribe(); ch != nil {
		t.Error("expected nil subscription on a terminal session")
	}
}

func TestBroker(t *testing.T) {
	b := newBroker()

	t.Run("fan-out", func(t *testing.T) {
		a := b.subscribe()
		c := b.subscribe()
		b.publish(Event{Kind: EventLog, Line: "hello"})

		for _, ch := range []chan Event{a, c} {
			select {
			case ev := <-ch:
				if ev.Line != "hello" {
					t.Errorf("unexpected event %+v", ev)
				}
			case <-time.After(time.Second):
				t.Fatal("subscriber did not receive event")
			}
		}
		b.unsubscribe(a)
		b.unsubscribe(c)
	})

	t.Run("slow subscriber drops, never blocks", func(t *testing.T) {
		ch := b.subscribe()
		done := make(chan struct{})
		go func() {
			for i := 0; i < 200; i++ { // well past the buffer
				b.publish(Event{Kind: EventLog, Line: "spam"})
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("publish blocked on a slow subscriber")
		}
		b.unsubscribe(ch)
	})

	t.Run("close ends all streams", func(t *testing.T) {
		ch := b.subscribe()
		b.close()
		if _, ok := <-ch; ok {
			// Buffered events may arrive first; drain to the close.
			for range ch {
			}
		}
		if got := b.subscribe(); got != nil {
			t.Error("expected nil subscription after close")
		}
		b.close() // idempotent
	})
}

func TestRegistry(t *testing.T) {
	ff := &fakeFetcher{handler: func(req fetcher.Request) (*fetcher.Response, error) {
		return htmlResponse(req.URL, "<html><body>x</body></html>"), nil
	}}
	factory := func(string) Options { return testOptions(ff) }

	r := NewRegistry(factory)
	defer r.Close()

	s := r.Create(context.Background(), "http://target.test/", Overrides{})
	if s.ID() == "" {
		t.Fatal("expected a scan id")
	}

	got, err := r.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}

	if _, err := r.Get("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	waitDone(t, s)

	t.Run("eviction removes expired terminal sessions", func(t *testing.T) {
		// Well past the TTL.
		r.evictExpired(time.Now().UTC().Add(2 * time.Hour))
		if _, err := r.Get(s.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected eviction, got %v", err)
		}
	})
}
