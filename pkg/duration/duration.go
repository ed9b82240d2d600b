// Package duration holds the canonical timeouts used across the scanner.
// Phase budgets and per-request timeouts reference these constants instead
// of scattering literal durations through the code.
package duration

import "time"

// Per-request timeouts.
const (
	// HTTPProbe is the timeout for a single injection probe (10s).
	HTTPProbe = 10 * time.Second

	// HTTPPage is the timeout for fetching one page during the crawl (15s).
	HTTPPage = 15 * time.Second

	// BrowserPage is the navigation timeout for a rendered page fetch (30s).
	BrowserPage = 30 * time.Second
)

// Phase budgets. Exceeding one truncates the phase with partial results; it
// never fails the scan.
const (
	// CrawlBudget bounds the discovery phase (2min).
	CrawlBudget = 2 * time.Minute

	// InjectBudget bounds the injection phase (10min).
	InjectBudget = 10 * time.Minute
)

// Housekeeping intervals.
const (
	// SessionTTL is how long a terminal session stays in the registry (1h).
	SessionTTL = time.Hour

	// EvictSweep is the registry janitor interval (5min).
	EvictSweep = 5 * time.Minute

	// StreamHeartbeat keeps SSE connections alive through proxies (15s).
	StreamHeartbeat = 15 * time.Second

	// CrawlDelay is the polite pause between crawl fetches (100ms).
	CrawlDelay = 100 * time.Millisecond
)
