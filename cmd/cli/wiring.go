package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wvscan/wvscan/pkg/config"
	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/fetcher"
	"github.com/wvscan/wvscan/pkg/injection"
	"github.com/wvscan/wvscan/pkg/payloads"
	"github.com/wvscan/wvscan/pkg/session"
)

// deps holds the long-lived collaborators built once from configuration and
// shared across scans.
type deps struct {
	factory  session.Factory
	renderer *fetcher.Renderer // nil unless -render
}

func (d *deps) close() {
	if d.renderer != nil {
		d.renderer.Close()
	}
}

// buildDeps assembles the payload catalogue and fetchers, then returns a
// factory producing per-scan session options.
func buildDeps(cfg *config.Config) (*deps, error) {
	static, err := payloads.NewStaticProvider(cfg.PayloadDir)
	if err != nil {
		return nil, err
	}
	providers := []payloads.Provider{static}
	if cfg.ProviderURL != "" {
		providers = append(providers, payloads.NewRemoteProvider(cfg.ProviderURL, nil))
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	catalogue, err := payloads.Merge(loadCtx, cfg.CategoryCap, providers...)
	if err != nil {
		// A failed provider degrades the set, it does not block the scan.
		fmt.Fprintf(os.Stderr, "wvscan: payload provider: %v (continuing with loaded payloads)\n", err)
	}
	if catalogue.Total() == 0 {
		return nil, fmt.Errorf("no payloads loaded")
	}

	fetchConfig := fetcher.DefaultConfig()
	fetchConfig.Timeout = cfg.Timeout
	fetchConfig.SkipVerify = cfg.SkipVerify
	fetchConfig.RateLimit = cfg.RateLimit
	client := fetcher.NewClient(fetchConfig)

	d := &deps{}
	var crawlFetch fetcher.Fetcher
	if cfg.RenderJS {
		renderConfig := fetcher.DefaultRenderConfig()
		renderConfig.ChromiumPath = cfg.ChromePath
		renderConfig.NoSandbox = cfg.NoSandbox
		d.renderer = fetcher.NewRenderer(renderConfig)
		crawlFetch = d.renderer
	}

	d.factory = func(string) session.Options {
		crawlConfig := crawler.DefaultConfig()
		crawlConfig.MaxDepth = cfg.MaxDepth
		crawlConfig.MaxPages = cfg.MaxPages
		crawlConfig.Timeout = cfg.CrawlTimeout
		crawlConfig.Delay = cfg.CrawlDelay
		crawlConfig.AllowedHosts = cfg.AllowedHosts

		injectConfig := injection.DefaultConfig()
		injectConfig.MaxPayloadsPerParam = cfg.MaxPayloadsPerParam
		injectConfig.TimeBasedSlack = cfg.TimeBasedSlack

		return session.Options{
			Fetcher:      client,
			CrawlFetcher: crawlFetch,
			Catalogue:    catalogue,
			Crawl:        crawlConfig,
			Inject:       injectConfig,
			Workers:      cfg.Workers,
			InjectBudget: cfg.InjectTimeout,
		}
	}
	return d, nil
}
