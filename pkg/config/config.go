package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wvscan/wvscan/pkg/duration"
)

// Config holds all CLI configuration options
type Config struct {
	// Target settings
	TargetURL string // Single target for one-shot scans
	Listen    string // Listen address; serve mode when set

	// Crawl settings
	MaxDepth     int           // Link depth from the seed (default: 2)
	MaxPages     int           // Page visit cap (default: 100)
	CrawlTimeout time.Duration // Discovery phase budget (default: 2m)
	CrawlDelay   time.Duration // Pause between page fetches (default: 100ms)
	AllowedHosts []string      // Extra in-scope hosts beyond the seed

	// Injection settings
	MaxPayloadsPerParam int           // Probe cap per (target, category) (default: 150)
	TimeBasedSlack      time.Duration // Jitter allowance for time-based SQLi (default: 1s)
	Workers             int           // Parallel injection workers (default: 8)
	InjectTimeout       time.Duration // Injection phase budget (default: 10m)

	// Payload settings
	PayloadDir  string // Directory of payload JSON files (empty = builtin only)
	ProviderURL string // Remote payload provider endpoint (empty = disabled)
	CategoryCap int    // Per-category cap when merging providers (0 = unlimited)

	// HTTP settings
	Timeout    time.Duration // Per-request timeout (default: 10s)
	RateLimit  int           // Requests per second (default: 10)
	SkipVerify bool          // Skip TLS verification

	// Rendering settings
	RenderJS   bool   // Fetch pages through a headless browser
	ChromePath string // Browser binary override (empty = auto-detect)
	NoSandbox  bool   // Pass --no-sandbox to the browser

	// Output settings
	ReportDir string // Where rendered reports are persisted
	Verbose   bool   // Verbose output
	NoColor   bool   // Disable colored output
	JSON      bool   // One-shot mode: print the JSON report to stdout
}

// fileConfig mirrors Config for the optional YAML overrides file. Only
// fields present in the file are applied, and explicit flags win over it.
type fileConfig struct {
	TargetURL *string `yaml:"target_url"`
	Listen    *string `yaml:"listen"`

	MaxDepth     *int      `yaml:"max_depth"`
	MaxPages     *int      `yaml:"max_pages"`
	CrawlTimeout *string   `yaml:"crawl_timeout"`
	CrawlDelay   *string   `yaml:"crawl_delay"`
	AllowedHosts []string  `yaml:"allowed_hosts"`

	MaxPayloadsPerParam *int    `yaml:"max_payloads_per_param"`
	TimeBasedSlack      *string `yaml:"time_based_slack"`
	Workers             *int    `yaml:"workers"`
	InjectTimeout       *string `yaml:"inject_timeout"`

	PayloadDir  *string `yaml:"payload_dir"`
	ProviderURL *string `yaml:"provider_url"`
	CategoryCap *int    `yaml:"category_cap"`

	Timeout    *string `yaml:"timeout"`
	RateLimit  *int    `yaml:"rate_limit"`
	SkipVerify *bool   `yaml:"skip_verify"`

	RenderJS   *bool   `yaml:"render_js"`
	ChromePath *string `yaml:"chrome_path"`
	NoSandbox  *bool   `yaml:"no_sandbox"`

	ReportDir *string `yaml:"report_dir"`
	NoColor   *bool   `yaml:"no_color"`
}

// ParseFlags parses command line arguments and returns Config
func ParseFlags() (*Config, error) {
	return parse(flag.CommandLine, os.Args[1:])
}

func parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	var allowedHosts string
	var configFile string

	// === TARGET ===
	fs.StringVar(&cfg.TargetURL, "u", "", "Target URL for a one-shot scan")
	fs.StringVar(&cfg.TargetURL, "target", "", "Target URL (alias)")
	fs.StringVar(&cfg.Listen, "listen", "", "Listen address for serve mode (e.g., :8080)")
	fs.StringVar(&configFile, "config", "", "YAML config file with overrides")

	// === CRAWL ===
	fs.IntVar(&cfg.MaxDepth, "depth", 2, "Max crawl depth from the seed")
	fs.IntVar(&cfg.MaxPages, "max-pages", 100, "Max pages to visit")
	fs.DurationVar(&cfg.CrawlTimeout, "crawl-timeout", duration.CrawlBudget, "Discovery phase budget")
	fs.DurationVar(&cfg.CrawlDelay, "delay", duration.CrawlDelay, "Pause between page fetches")
	fs.StringVar(&allowedHosts, "allowed-hosts", "", "Extra in-scope hosts, comma-separated")

	// === INJECTION ===
	fs.IntVar(&cfg.MaxPayloadsPerParam, "max-payloads", 150, "Payload cap per parameter and category")
	fs.DurationVar(&cfg.TimeBasedSlack, "time-slack", time.Second, "Jitter allowance for time-based SQLi")
	fs.IntVar(&cfg.Workers, "workers", 8, "Concurrent injection workers")
	fs.IntVar(&cfg.Workers, "c", 8, "Concurrent workers (alias)")
	fs.DurationVar(&cfg.InjectTimeout, "inject-timeout", duration.InjectBudget, "Injection phase budget")

	// === PAYLOADS ===
	fs.StringVar(&cfg.PayloadDir, "payloads", "", "Payload directory (empty = builtin only)")
	fs.StringVar(&cfg.PayloadDir, "p", "", "Payload dir (alias)")
	fs.StringVar(&cfg.ProviderURL, "provider", "", "Remote payload provider URL")
	fs.IntVar(&cfg.CategoryCap, "category-cap", 0, "Per-category payload cap when merging providers")

	// === NETWORK ===
	fs.DurationVar(&cfg.Timeout, "timeout", duration.HTTPProbe, "Per-request HTTP timeout")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 10, "Max requests per second")
	fs.IntVar(&cfg.RateLimit, "rl", 10, "Rate limit (alias)")
	fs.BoolVar(&cfg.SkipVerify, "skip-verify", false, "Skip TLS verification")
	fs.BoolVar(&cfg.SkipVerify, "k", false, "Skip TLS (alias)")

	// === RENDERING ===
	fs.BoolVar(&cfg.RenderJS, "render", false, "Render pages in a headless browser")
	fs.StringVar(&cfg.ChromePath, "chrome", "", "Browser binary path override")
	fs.BoolVar(&cfg.NoSandbox, "no-sandbox", false, "Pass --no-sandbox to the browser")

	// === OUTPUT ===
	fs.StringVar(&cfg.ReportDir, "report-dir", "reports", "Directory for persisted reports")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose (alias)")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&cfg.NoColor, "nc", false, "No color (alias)")
	fs.BoolVar(&cfg.JSON, "json", false, "One-shot mode: print the JSON report to stdout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if allowedHosts != "" {
		for _, h := range strings.Split(allowedHosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.AllowedHosts = append(cfg.AllowedHosts, h)
			}
		}
	}

	// Explicit flags win over the file, so note them before applying it.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if configFile != "" {
		if err := cfg.applyFile(configFile, set); err != nil {
			return nil, err
		}
	}

	// Validate - a target or a listen address is required
	if cfg.TargetURL == "" && cfg.Listen == "" {
		return nil, fmt.Errorf("%w: use -u for a one-shot scan or -listen for serve mode", ErrMissingRequired)
	}

	return cfg, nil
}

// applyFile overlays YAML file values onto cfg for settings the user did
// not pass as flags.
func (c *Config) applyFile(path string, set map[string]bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	setAny := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}
	dur := func(dst *time.Duration, raw *string, field string) error {
		if raw == nil {
			return nil
		}
		d, err := time.ParseDuration(*raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
		}
		*dst = d
		return nil
	}

	if fc.TargetURL != nil && !setAny("u", "target") {
		c.TargetURL = *fc.TargetURL
	}
	if fc.Listen != nil && !setAny("listen") {
		c.Listen = *fc.Listen
	}
	if fc.MaxDepth != nil && !setAny("depth") {
		c.MaxDepth = *fc.MaxDepth
	}
	if fc.MaxPages != nil && !setAny("max-pages") {
		c.MaxPages = *fc.MaxPages
	}
	if !setAny("crawl-timeout") {
		if err := dur(&c.CrawlTimeout, fc.CrawlTimeout, "crawl_timeout"); err != nil {
			return err
		}
	}
	if !setAny("delay") {
		if err := dur(&c.CrawlDelay, fc.CrawlDelay, "crawl_delay"); err != nil {
			return err
		}
	}
	if len(fc.AllowedHosts) > 0 && !setAny("allowed-hosts") {
		c.AllowedHosts = fc.AllowedHosts
	}
	if fc.MaxPayloadsPerParam != nil && !setAny("max-payloads") {
		c.MaxPayloadsPerParam = *fc.MaxPayloadsPerParam
	}
	if !setAny("time-slack") {
		if err := dur(&c.TimeBasedSlack, fc.TimeBasedSlack, "time_based_slack"); err != nil {
			return err
		}
	}
	if fc.Workers != nil && !setAny("workers", "c") {
		c.Workers = *fc.Workers
	}
	if !setAny("inject-timeout") {
		if err := dur(&c.InjectTimeout, fc.InjectTimeout, "inject_timeout"); err != nil {
			return err
		}
	}
	if fc.PayloadDir != nil && !setAny("payloads", "p") {
		c.PayloadDir = *fc.PayloadDir
	}
	if fc.ProviderURL != nil && !setAny("provider") {
		c.ProviderURL = *fc.ProviderURL
	}
	if fc.CategoryCap != nil && !setAny("category-cap") {
		c.CategoryCap = *fc.CategoryCap
	}
	if !setAny("timeout") {
		if err := dur(&c.Timeout, fc.Timeout, "timeout"); err != nil {
			return err
		}
	}
	if fc.RateLimit != nil && !setAny("rate-limit", "rl") {
		c.RateLimit = *fc.RateLimit
	}
	if fc.SkipVerify != nil && !setAny("skip-verify", "k") {
		c.SkipVerify = *fc.SkipVerify
	}
	if fc.RenderJS != nil && !setAny("render") {
		c.RenderJS = *fc.RenderJS
	}
	if fc.ChromePath != nil && !setAny("chrome") {
		c.ChromePath = *fc.ChromePath
	}
	if fc.NoSandbox != nil && !setAny("no-sandbox") {
		c.NoSandbox = *fc.NoSandbox
	}
	if fc.ReportDir != nil && !setAny("report-dir") {
		c.ReportDir = *fc.ReportDir
	}
	if fc.NoColor != nil && !setAny("no-color", "nc") {
		c.NoColor = *fc.NoColor
	}
	return nil
}
