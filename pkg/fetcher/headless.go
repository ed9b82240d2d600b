package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/wvscan/wvscan/pkg/duration"
	"github.com/wvscan/wvscan/pkg/ui"
)

// ErrRenderMethod is returned when a rendered fetch is asked for anything
// but GET. Script execution only makes sense for navigations.
var ErrRenderMethod = errors.New("fetcher: rendered fetch supports GET only")

// RenderConfig holds headless browser options.
type RenderConfig struct {
	// NavTimeout bounds one navigation including script execution.
	NavTimeout time.Duration

	// ChromiumPath overrides browser discovery. Empty uses the default
	// lookup.
	ChromiumPath string

	NoSandbox bool
	UserAgent string
}

// DefaultRenderConfig returns the standard rendering options.
func DefaultRenderConfig() *RenderConfig {
	return &RenderConfig{
		NavTimeout: duration.BrowserPage,
		NoSandbox:  true,
		UserAgent:  ui.UserAgent(),
	}
}

// Renderer fetches a page through a headless browser, executing client-side
// script before returning the final DOM. It satisfies Fetcher so JS-heavy
// targets can be crawled through the same contract as plain HTTP.
type Renderer struct {
	config *RenderConfig

	mu        sync.Mutex
	allocCtx  context.Context
	allocStop context.CancelFunc
}

var _ Fetcher = (*Renderer)(nil)

// NewRenderer creates a renderer. The browser process starts lazily on the
// first fetch.
func NewRenderer(config *RenderConfig) *Renderer {
	if config == nil {
		config = DefaultRenderConfig()
	}
	return &Renderer{config: config}
}

func (r *Renderer) allocator() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocCtx != nil {
		return r.allocCtx
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.UserAgent(r.config.UserAgent),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if r.config.ChromiumPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ChromiumPath))
	}

	// The allocator outlives individual fetches; context.Background keeps
	// it alive until Close.
	r.allocCtx, r.allocStop = chromedp.NewExecAllocator(context.Background(), opts...)
	return r.allocCtx
}

// Fetch implements Fetcher. Form values are merged into the query string;
// non-GET methods are rejected.
func (r *Renderer) Fetch(ctx context.Context, req Request) (*Response, error) {
	if req.Method != "" && req.Method != http.MethodGet {
		return nil, ErrRenderMethod
	}

	target := req.URL
	if req.Form != nil {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, vs := range req.Form {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	tabCtx, cancelTab := chromedp.NewContext(r.allocator())
	defer cancelTab()

	navCtx, cancelNav := context.WithTimeout(tabCtx, r.config.NavTimeout)
	defer cancelNav()

	// The tab chains from the allocator, not the caller; propagate caller
	// cancellation by hand.
	go func() {
		select {
		case <-ctx.Done():
			cancelNav()
		case <-navCtx.Done():
		}
	}()

	// Capture the document response so status and headers survive the
	// render.
	var (
		respMu     sync.Mutex
		statusCode int
		header     = make(http.Header)
	)
	chromedp.ListenTarget(navCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		respMu.Lock()
		defer respMu.Unlock()
		statusCode = int(resp.Response.Status)
		for k, v := range resp.Response.Headers {
			if s, ok := v.(string); ok {
				header.Set(k, s)
			}
		}
	})

	start := time.Now()
	var finalURL, dom string
	err := chromedp.Run(navCtx,
		network.Enable(),
		chromedp.Navigate(target),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &dom),
	)
	if err != nil {
		// A context deadline here means the page never settled; the body
		// collected so far is unusable.
		return nil, err
	}

	respMu.Lock()
	defer respMu.Unlock()
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	if finalURL == "" || strings.HasPrefix(finalURL, "about:") {
		finalURL = target
	}

	return &Response{
		URL:        finalURL,
		StatusCode: statusCode,
		Header:     header,
		Body:       []byte(dom),
		Duration:   time.Since(start),
	}, nil
}

// Close shuts down the browser process.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocStop != nil {
		r.allocStop()
		r.allocCtx = nil
		r.allocStop = nil
	}
}
