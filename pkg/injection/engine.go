// Package injection turns injection targets and a payload catalogue into
// findings. For each target it selects the context-relevant payload
// category, issues probes through a Fetcher, and runs the responses through
// category-specific classifiers. One request failing is routine; the engine
// logs it and moves on.
package injection

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/fetcher"
	"github.com/wvscan/wvscan/pkg/finding"
	"github.com/wvscan/wvscan/pkg/payloads"
)

// Config holds engine tuning.
type Config struct {
	// MaxPayloadsPerParam caps probes per (target, category). The full
	// catalogue can hold hundreds of payloads per category; the cap trades
	// recall for bounded scan duration.
	MaxPayloadsPerParam int

	// TimeBasedSlack is subtracted from a time-based payload's declared
	// sleep when comparing against the baseline. Larger values reduce
	// false positives from network jitter at the cost of missing slow
	// confirmations. The default (1s) is a heuristic, not a guarantee;
	// tune per target network.
	TimeBasedSlack time.Duration
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() *Config {
	return &Config{
		MaxPayloadsPerParam: 150,
		TimeBasedSlack:      time.Second,
	}
}

// Engine tests injection targets. One engine serves one scan; it remembers
// which base URLs already got the passive header check so duplicate targets
// do not re-raise the same findings.
type Engine struct {
	config    *Config
	fetch     fetcher.Fetcher
	catalogue *payloads.Catalogue

	// OnFinding, when set, receives each finding as it is confirmed, so a
	// live observer sees results before the scan ends.
	OnFinding func(finding.Finding)

	logf func(format string, args ...any)

	probes atomic.Int64

	mu             sync.Mutex
	headersChecked map[string]bool
}

// NewEngine creates an engine probing through f with the given catalogue.
// logf receives probe-level debug lines; nil discards them.
func NewEngine(config *Config, f fetcher.Fetcher, catalogue *payloads.Catalogue, logf func(format string, args ...any)) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Engine{
		config:         config,
		fetch:          f,
		catalogue:      catalogue,
		logf:           logf,
		headersChecked: make(map[string]bool),
	}
}

// Test probes one target and returns its findings, possibly none. The
// payload category follows the target's shape: header-located targets get
// header checks, parameter targets get XSS and SQLi probes. Fetch errors
// are logged and skipped, never fatal.
func (e *Engine) Test(ctx context.Context, target crawler.InjectionTarget) []finding.Finding {
	var found []finding.Finding

	if target.Location == crawler.LocationHeader {
		found = append(found, e.testHeaders(ctx, target)...)
		return found
	}

	if f := e.testXSS(ctx, target); f != nil {
		found = append(found, *f)
	}
	if f := e.testSQLi(ctx, target); f != nil {
		found = append(found, *f)
	}
	return found
}

func (e *Engine) report(f finding.Finding) {
	if e.OnFinding != nil {
		e.OnFinding(f)
	}
}

// Probes reports how many probe requests the engine has issued so far.
// Safe to call while Test is running.
func (e *Engine) Probes() int {
	return int(e.probes.Load())
}

// probe sends one request with value substituted into the target's
// parameter.
func (e *Engine) probe(ctx context.Context, target crawler.InjectionTarget, value string) (*fetcher.Response, error) {
	e.probes.Add(1)
	req := fetcher.Request{Method: target.Method, URL: target.URL}

	switch target.Location {
	case crawler.LocationHeader:
		req.Header = http.Header{}
		req.Header.Set(target.Parameter, value)
	default:
		req.Form = url.Values{target.Parameter: []string{value}}
		if target.Location == crawler.LocationQuery {
			req.Method = http.MethodGet
		}
	}
	return e.fetch.Fetch(ctx, req)
}

// selectPayloads applies the per-parameter cap for a category.
func (e *Engine) selectPayloads(category finding.Category) []payloads.Payload {
	return e.catalogue.Select(category, e.config.MaxPayloadsPerParam)
}
