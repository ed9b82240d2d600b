// Package fetcher performs single HTTP request/response cycles for the
// crawler and the injection engine. A Fetcher is one exchange: build
// request, apply timeout and rate limit, read a bounded body. The plain
// Client talks HTTP directly; Renderer (headless.go) executes client-side
// script first and returns the final DOM.
package fetcher

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wvscan/wvscan/pkg/duration"
	"github.com/wvscan/wvscan/pkg/iohelper"
	"github.com/wvscan/wvscan/pkg/ui"
)

// Request describes one exchange. Form, when non-nil, is sent as an
// x-www-form-urlencoded body; Header entries are set on top of the defaults.
type Request struct {
	Method string
	URL    string
	Form   url.Values
	Header http.Header
}

// Response is the bounded result of one exchange.
type Response struct {
	// URL is the effective URL after any followed redirects.
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	// Duration is wall time for the exchange, used by time-based
	// classifiers.
	Duration time.Duration
}

// BodyString returns the body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// Fetcher is the single-exchange contract shared by the HTTP client and the
// rendering backend.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// Config holds client construction options.
type Config struct {
	Timeout         time.Duration
	FollowRedirects bool
	SkipVerify      bool
	UserAgent       string

	// RateLimit is max requests per second against the target.
	// 0 disables client-side limiting.
	RateLimit int

	// MaxBodySize caps response body reads. 0 uses the 1MB default.
	MaxBodySize int64
}

// DefaultConfig returns the standard probe configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         duration.HTTPProbe,
		FollowRedirects: true,
		UserAgent:       ui.UserAgent(),
	}
}

// Client is the plain HTTP fetcher.
type Client struct {
	config  *Config
	client  *http.Client
	limiter *rate.Limiter
}

var _ Fetcher = (*Client)(nil)

// NewClient builds a client from config. A nil config gets defaults.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.SkipVerify,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	hc := &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
	if !config.FollowRedirects {
		hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else {
		hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		}
	}

	c := &Client{config: config, client: hc}
	if config.RateLimit > 0 {
		burst := config.RateLimit / 5
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return c
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var httpReq *http.Request
	var err error
	if req.Form != nil && method != http.MethodGet {
		httpReq, err = http.NewRequestWithContext(ctx, method, req.URL, strings.NewReader(req.Form.Encode()))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		target := req.URL
		if req.Form != nil {
			u, perr := url.Parse(req.URL)
			if perr != nil {
				return nil, perr
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
		httpReq, err = http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, err
		}
	}

	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	maxBody := c.config.MaxBodySize
	if maxBody <= 0 {
		maxBody = iohelper.DefaultMaxBodySize
	}
	body, err := iohelper.ReadBody(resp.Body, maxBody)
	if err != nil {
		return nil, err
	}

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
