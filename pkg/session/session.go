// Package session owns the scan lifecycle. A Session is the state machine
// for one scan (queued → running → finished/error), the only consistent
// view callers have of a long-running, partially-failing background job.
// The Registry maps scan ids to sessions process-wide.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/duration"
	"github.com/wvscan/wvscan/pkg/fetcher"
	"github.com/wvscan/wvscan/pkg/finding"
	"github.com/wvscan/wvscan/pkg/injection"
	"github.com/wvscan/wvscan/pkg/payloads"
	"github.com/wvscan/wvscan/pkg/workerpool"
)

// State is a session lifecycle state. Transitions are one-directional:
// queued → running → {finished, error}. Nothing leaves a terminal state.
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateError    State = "error"
)

// Terminal reports whether s is an end state.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateError
}

// Counters are the live scan counters exposed to observers.
type Counters struct {
	Pages    int `json:"pages"`
	Forms    int `json:"forms"`
	Probes   int `json:"probes"`
	Findings int `json:"findings"`
}

// Snapshot is an immutable copy of a session's observable state. Taking one
// never blocks the writer beyond the snapshot barrier.
type Snapshot struct {
	ID        string    `json:"id"`
	TargetURL string    `json:"target_url"`
	State     State     `json:"state"`

	// Progress is an approximation in [0,100]: targets processed over the
	// estimated total, re-estimated as discovery finds more targets. It is
	// monotonically non-decreasing while running.
	Progress float64 `json:"progress"`

	Counters    Counters          `json:"counters"`
	LastError   string            `json:"last_error,omitempty"`
	Log         []string          `json:"log"`
	Findings    []finding.Finding `json:"findings"`

	// Targets are the injection points discovery produced, in discovery
	// order. Empty until the crawl phase completes.
	Targets []crawler.InjectionTarget `json:"targets"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt time.Time         `json:"completed_at,omitzero"`
}

// Options wires the collaborators a session drives. The factory creating
// sessions owns per-scan configuration; the session only orchestrates.
type Options struct {
	Fetcher   fetcher.Fetcher
	Catalogue *payloads.Catalogue
	Crawl     *crawler.Config
	Inject    *injection.Config

	// CrawlFetcher, when set, serves the discovery phase instead of
	// Fetcher. This is how a rendering backend crawls JS-heavy pages while
	// injection probes stay on plain HTTP.
	CrawlFetcher fetcher.Fetcher

	// Workers bounds the injection fan-out (default 8).
	Workers int

	// InjectBudget bounds the injection phase.
	InjectBudget time.Duration
}

// Session is one scan. Exactly one orchestration goroutine mutates it; all
// other access is read-only snapshotting behind the mutex barrier.
type Session struct {
	id        string
	targetURL string
	opts      Options
	broker    *broker

	mu          sync.RWMutex
	state       State
	progress    float64
	counters    Counters
	log         []string
	findings    []finding.Finding
	targets     []crawler.InjectionTarget
	lastError   string
	createdAt   time.Time
	completedAt time.Time

	startOnce sync.Once
	cancelMu  sync.Mutex
	cancel    context.CancelCauseFunc
	done      chan struct{}
}

// New creates a queued session. Start launches it.
func New(id, targetURL string, opts Options) *Session {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.InjectBudget <= 0 {
		opts.InjectBudget = duration.InjectBudget
	}
	if opts.Crawl == nil {
		opts.Crawl = crawler.DefaultConfig()
	}
	if opts.Inject == nil {
		opts.Inject = injection.DefaultConfig()
	}
	return &Session{
		id:        id,
		targetURL: targetURL,
		opts:      opts,
		broker:    newBroker(),
		state:     StateQueued,
		createdAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
}

// ID returns the scan id.
func (s *Session) ID() string { return s.id }

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start transitions queued → running and launches the orchestration
// goroutine. Idempotent: later calls are no-ops, so a caller retrying a
// start request cannot double-run a scan.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancelCause(ctx)
		s.cancelMu.Lock()
		s.cancel = cancel
		s.cancelMu.Unlock()

		s.setState(StateRunning)
		go s.run(runCtx)
	})
}

// Cancel stops the scan promptly with the given reason. The session
// transitions to error; a session that is already terminal is unaffected.
func (s *Session) Cancel(reason string) {
	s.cancelMu.Lock()
	cancel := s.cancel
	s.cancelMu.Unlock()
	if cancel != nil {
		cancel(fmt.Errorf("cancelled: %s", reason))
	}
}

// Subscribe attaches a live observer. The channel receives status and log
// events as they occur and closes when the session ends; nil is returned if
// the session is already terminal (poll the snapshot instead). Always pair
// with Unsubscribe.
func (s *Session) Subscribe() chan Event {
	return s.broker.subscribe()
}

// Unsubscribe detaches a live observer.
func (s *Session) Unsubscribe(ch chan Event) {
	if ch != nil {
		s.broker.unsubscribe(ch)
	}
}

// Snapshot returns an immutable copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:          s.id,
		TargetURL:   s.targetURL,
		State:       s.state,
		Progress:    s.progress,
		Counters:    s.counters,
		LastError:   s.lastError,
		CreatedAt:   s.createdAt,
		CompletedAt: s.completedAt,
	}
	snap.Log = make([]string, len(s.log))
	copy(snap.Log, s.log)
	snap.Findings = make([]finding.Finding, len(s.findings))
	copy(snap.Findings, s.findings)
	snap.Targets = make([]crawler.InjectionTarget, len(s.targets))
	copy(snap.Targets, s.targets)
	return snap
}

// run is the single writer: it drives crawl then injection and owns every
// mutation until the terminal transition.
func (s *Session) run(ctx context.Context) {
	s.appendLog(fmt.Sprintf("scan started for %s", s.targetURL))

	// Discovery phase.
	crawlFetch := s.opts.CrawlFetcher
	if crawlFetch == nil {
		crawlFetch = s.opts.Fetcher
	}
	crawl := crawler.New(s.opts.Crawl, crawlFetch, s.logf)
	targets, stats, err := crawl.Discover(ctx, s.targetURL)
	if err != nil {
		s.fail(err)
		return
	}
	s.mu.Lock()
	s.targets = targets
	s.mu.Unlock()
	s.setCounters(func(c *Counters) {
		c.Pages = stats.PagesVisited
		c.Forms = stats.FormsDiscovered
	})
	s.appendLog(fmt.Sprintf("discovery finished: %d pages, %d forms, %d injection targets",
		stats.PagesVisited, stats.FormsDiscovered, len(targets)))

	if cause := context.Cause(ctx); cause != nil && ctx.Err() != nil {
		s.fail(cause)
		return
	}

	// Injection phase.
	engine := injection.NewEngine(s.opts.Inject, s.opts.Fetcher, s.opts.Catalogue, s.logf)
	engine.OnFinding = s.recordFinding

	injectCtx, cancelInject := context.WithTimeout(ctx, s.opts.InjectBudget)
	defer cancelInject()

	pool := workerpool.New(s.opts.Workers)
	var wg sync.WaitGroup
	var processed int
	var progressMu sync.Mutex

	total := len(targets)
	for _, target := range targets {
		target := target
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if injectCtx.Err() != nil {
				return
			}
			engine.Test(injectCtx, target)

			progressMu.Lock()
			processed++
			p := float64(processed)
			progressMu.Unlock()
			if total > 0 {
				s.setProgress(p / float64(total) * 100)
			}
		})
	}
	wg.Wait()
	pool.Close()
	s.setCounters(func(c *Counters) { c.Probes = engine.Probes() })

	if cause := context.Cause(ctx); cause != nil && ctx.Err() != nil {
		s.fail(cause)
		return
	}
	if injectCtx.Err() != nil {
		s.appendLog("injection budget exceeded, finishing with partial results")
	}

	s.finish()
}

func (s *Session) logf(format string, args ...any) {
	s.appendLog(fmt.Sprintf(format, args...))
}

// appendLog adds one line to the append-only log and publishes it.
// Writer-only.
func (s *Session) appendLog(line string) {
	stamped := time.Now().UTC().Format("15:04:05") + " " + line
	s.mu.Lock()
	s.log = append(s.log, stamped)
	s.mu.Unlock()
	s.broker.publish(Event{Kind: EventLog, Line: stamped})
}

// recordFinding appends a finding, bumps the counter, and logs it.
// Writer-only (called from injection workers owned by the orchestration).
func (s *Session) recordFinding(f finding.Finding) {
	s.mu.Lock()
	s.findings = append(s.findings, f)
	s.counters.Findings = len(s.findings)
	counters := s.counters
	s.mu.Unlock()

	s.appendLog(fmt.Sprintf("[%s] %s at %s", f.Severity, f.Name, f.URL))
	s.publishStatus(StatusDelta{Counters: &counters})
}

// setProgress raises progress, never lowers it.
func (s *Session) setProgress(p float64) {
	if p > 100 {
		p = 100
	}
	s.mu.Lock()
	if p <= s.progress {
		s.mu.Unlock()
		return
	}
	s.progress = p
	s.mu.Unlock()
	s.publishStatus(StatusDelta{Progress: &p})
}

func (s *Session) setCounters(mutate func(*Counters)) {
	s.mu.Lock()
	mutate(&s.counters)
	counters := s.counters
	s.mu.Unlock()
	s.publishStatus(StatusDelta{Counters: &counters})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.publishStatus(StatusDelta{State: st})
}

func (s *Session) publishStatus(delta StatusDelta) {
	s.broker.publish(Event{Kind: EventStatus, Status: &delta})
}

// finish is the running → finished transition. Zero findings is still a
// successful scan.
func (s *Session) finish() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateFinished
	s.progress = 100
	s.completedAt = time.Now().UTC()
	s.mu.Unlock()

	s.appendLog("scan finished")
	p := 100.0
	s.publishStatus(StatusDelta{State: StateFinished, Progress: &p})
	s.broker.close()
	close(s.done)
}

// fail is the running → error transition. The error message is set exactly
// once, here.
func (s *Session) fail(err error) {
	if err == nil {
		err = errors.New("unknown failure")
	}
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateError
	s.lastError = err.Error()
	s.completedAt = time.Now().UTC()
	s.mu.Unlock()

	s.appendLog("scan failed: " + err.Error())
	s.publishStatus(StatusDelta{State: StateError, Error: err.Error()})
	s.broker.close()
	close(s.done)
}
