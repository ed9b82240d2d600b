// Package crawler discovers pages and injection points. Starting from a
// seed URL it walks same-origin links breadth-first up to a configured
// depth, lifting query parameters, form fields, and a fixed set of request
// headers as injection targets. A crawl is one-shot: a fresh Crawler is
// required per scan.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wvscan/wvscan/pkg/duration"
	"github.com/wvscan/wvscan/pkg/fetcher"
)

// ErrSeedUnreachable means the very first fetch failed. Unlike any later
// page failure this is fatal for the scan: there is nothing to test.
var ErrSeedUnreachable = errors.New("crawler: seed URL unreachable")

// Config holds crawl limits and scope.
type Config struct {
	MaxDepth int
	MaxPages int

	// Timeout is the phase budget. When it expires the crawl returns
	// whatever it found; it is not an error.
	Timeout time.Duration

	// Delay is the polite pause between page fetches.
	Delay time.Duration

	// AllowedHosts extends the scope beyond the seed host. Empty means
	// seed host only.
	AllowedHosts []string

	// DisallowedExtensions skips asset URLs the scanner has no use for.
	DisallowedExtensions []string
}

// DefaultConfig returns the standard crawl limits.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth: 2,
		MaxPages: 100,
		Timeout:  duration.CrawlBudget,
		Delay:    duration.CrawlDelay,
		DisallowedExtensions: []string{
			".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
			".css", ".woff", ".woff2", ".ttf",
			".mp3", ".mp4", ".webm",
			".pdf", ".zip", ".tar", ".gz",
		},
	}
}

// Stats counts what a crawl visited.
type Stats struct {
	PagesVisited    int
	FormsDiscovered int
}

// Crawler performs one discovery run. Not restartable.
type Crawler struct {
	config  *Config
	fetch   fetcher.Fetcher
	logf    func(format string, args ...any)
	visited map[string]bool
	seen    map[string]bool // target dedup keys
	used    bool
}

type crawlTask struct {
	url   string
	depth int
}

// New creates a crawler that fetches through f. logf receives crawl log
// lines (page failures, truncation notices); nil discards them.
func New(config *Config, f fetcher.Fetcher, logf func(format string, args ...any)) *Crawler {
	if config == nil {
		config = DefaultConfig()
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Crawler{
		config:  config,
		fetch:   f,
		logf:    logf,
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
	}
}

// Discover walks from seedURL and returns the deduplicated, discovery-ordered
// injection targets. Individual page failures are logged and skipped; only an
// unreachable seed returns an error. On budget expiry the targets found so
// far are returned.
func (c *Crawler) Discover(ctx context.Context, seedURL string) ([]InjectionTarget, Stats, error) {
	if c.used {
		return nil, Stats{}, errors.New("crawler: already used, create a fresh one per scan")
	}
	c.used = true

	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrSeedUnreachable, seedURL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var (
		targets []InjectionTarget
		stats   Stats
		queue   = []crawlTask{{url: seed.String(), depth: 0}}
	)

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			c.logf("crawl budget exceeded, continuing with %d targets", len(targets))
			return targets, stats, nil
		default:
		}

		task := queue[0]
		queue = queue[1:]

		if c.visited[task.url] || task.depth > c.config.MaxDepth {
			continue
		}
		c.visited[task.url] = true

		if c.config.MaxPages > 0 && stats.PagesVisited >= c.config.MaxPages {
			c.logf("page limit %d reached, stopping crawl", c.config.MaxPages)
			break
		}

		resp, err := c.fetch.Fetch(ctx, fetcher.Request{Method: http.MethodGet, URL: task.url})
		if err != nil {
			if stats.PagesVisited == 0 {
				return nil, stats, fmt.Errorf("%w: %v", ErrSeedUnreachable, err)
			}
			c.logf("fetch failed for %s: %v", task.url, err)
			continue
		}
		stats.PagesVisited++

		pageURL, err := url.Parse(resp.URL)
		if err != nil {
			c.logf("unparseable effective URL for %s: %v", task.url, err)
			continue
		}
		if !c.inScope(pageURL, seed) {
			// Redirected off-origin; the page itself is out of scope.
			continue
		}

		targets = c.appendPageTargets(targets, pageURL)

		if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			continue
		}

		links, forms := extractPage(resp.BodyString(), pageURL)
		stats.FormsDiscovered += len(forms)
		targets = c.appendFormTargets(targets, forms, pageURL)

		for _, link := range links {
			lu, err := url.Parse(link)
			if err != nil || !c.inScope(lu, seed) || !c.allowedExtension(lu) {
				continue
			}
			targets = c.appendQueryTargets(targets, lu)
			if !c.visited[link] && task.depth < c.config.MaxDepth {
				queue = append(queue, crawlTask{url: link, depth: task.depth + 1})
			}
		}

		if c.config.Delay > 0 {
			select {
			case <-time.After(c.config.Delay):
			case <-ctx.Done():
			}
		}
	}

	return targets, stats, nil
}

// appendPageTargets adds the implicit header injection points for a page.
func (c *Crawler) appendPageTargets(targets []InjectionTarget, page *url.URL) []InjectionTarget {
	base := *page
	base.RawQuery = ""
	for _, h := range injectableHeaders {
		targets = c.appendTarget(targets, InjectionTarget{
			URL:       base.String(),
			Method:    http.MethodGet,
			Parameter: h,
			Location:  LocationHeader,
			Hint:      "request header",
		})
	}
	return targets
}

// appendQueryTargets adds one target per query parameter on a same-origin
// link.
func (c *Crawler) appendQueryTargets(targets []InjectionTarget, link *url.URL) []InjectionTarget {
	for param := range link.Query() {
		targets = c.appendTarget(targets, InjectionTarget{
			URL:       link.String(),
			Method:    http.MethodGet,
			Parameter: param,
			Location:  LocationQuery,
			Hint:      "link query parameter",
		})
	}
	return targets
}

// appendFormTargets adds one target per named form field.
func (c *Crawler) appendFormTargets(targets []InjectionTarget, forms []pageForm, page *url.URL) []InjectionTarget {
	for _, form := range forms {
		action := page.String()
		if form.Action != "" {
			if resolved := resolveURL(form.Action, page); resolved != "" {
				action = resolved
			}
		}
		loc := LocationBody
		if form.Method == http.MethodGet {
			loc = LocationQuery
		}
		for _, input := range form.Inputs {
			targets = c.appendTarget(targets, InjectionTarget{
				URL:       action,
				Method:    form.Method,
				Parameter: input.Name,
				Location:  loc,
				Hint:      fmt.Sprintf("form field of type %s", input.Type),
			})
		}
	}
	return targets
}

func (c *Crawler) appendTarget(targets []InjectionTarget, t InjectionTarget) []InjectionTarget {
	key := t.Key()
	if c.seen[key] {
		return targets
	}
	c.seen[key] = true
	return append(targets, t)
}

func (c *Crawler) inScope(u, seed *url.URL) bool {
	if sameHost(u, seed.Host) {
		return true
	}
	for _, allowed := range c.config.AllowedHosts {
		if strings.EqualFold(u.Host, allowed) {
			return true
		}
	}
	return false
}

func (c *Crawler) allowedExtension(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, ext := range c.config.DisallowedExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}
