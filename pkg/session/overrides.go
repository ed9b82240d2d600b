package session

import (
	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/injection"
)

// Overrides are the per-scan tuning knobs a caller may supply at start.
// Nil fields keep the server defaults; values are clamped to sane ranges so
// one request cannot turn the scanner into a flood.
type Overrides struct {
	MaxDepth            *int `json:"max_depth,omitempty"`
	MaxPages            *int `json:"max_pages,omitempty"`
	MaxPayloadsPerParam *int `json:"max_payloads_per_param,omitempty"`
	Workers             *int `json:"workers,omitempty"`
}

// Limits for override clamping.
const (
	maxDepthCeiling    = 5
	maxPagesCeiling    = 1000
	maxPayloadsCeiling = 1000
	maxWorkersCeiling  = 64
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Apply folds the overrides into opts. Config structs are copied before
// mutation so a shared default is never edited in place.
func (o Overrides) Apply(opts Options) Options {
	if o.MaxDepth != nil || o.MaxPages != nil {
		crawl := *crawler.DefaultConfig()
		if opts.Crawl != nil {
			crawl = *opts.Crawl
		}
		if o.MaxDepth != nil {
			crawl.MaxDepth = clamp(*o.MaxDepth, 0, maxDepthCeiling)
		}
		if o.MaxPages != nil {
			crawl.MaxPages = clamp(*o.MaxPages, 1, maxPagesCeiling)
		}
		opts.Crawl = &crawl
	}
	if o.MaxPayloadsPerParam != nil {
		inject := *injection.DefaultConfig()
		if opts.Inject != nil {
			inject = *opts.Inject
		}
		inject.MaxPayloadsPerParam = clamp(*o.MaxPayloadsPerParam, 1, maxPayloadsCeiling)
		opts.Inject = &inject
	}
	if o.Workers != nil {
		opts.Workers = clamp(*o.Workers, 1, maxWorkersCeiling)
	}
	return opts
}
