package session

import (
	"testing"

	"github.com/wvscan/wvscan/pkg/crawler"
	"github.com/wvscan/wvscan/pkg/injection"
)

func intp(v int) *int { return &v }

func TestOverridesApply(t *testing.T) {
	t.Run("nil fields keep defaults", func(t *testing.T) {
		base := Options{Crawl: crawler.DefaultConfig(), Inject: injection.DefaultConfig(), Workers: 8}
		got := Overrides{}.Apply(base)
		if got.Crawl != base.Crawl || got.Inject != base.Inject {
			t.Error("empty overrides should not copy configs")
		}
		if got.Workers != 8 {
			t.Errorf("workers changed to %d", got.Workers)
		}
	})

	t.Run("set fields replace, clamped", func(t *testing.T) {
		base := Options{Crawl: crawler.DefaultConfig(), Inject: injection.DefaultConfig(), Workers: 8}
		got := Overrides{
			MaxDepth:            intp(99),
			MaxPages:            intp(0),
			MaxPayloadsPerParam: intp(10),
			Workers:             intp(1000),
		}.Apply(base)

		if got.Crawl.MaxDepth != maxDepthCeiling {
			t.Errorf("depth not clamped: %d", got.Crawl.MaxDepth)
		}
		if got.Crawl.MaxPages != 1 {
			t.Errorf("pages not clamped up: %d", got.Crawl.MaxPages)
		}
		if got.Inject.MaxPayloadsPerParam != 10 {
			t.Errorf("payload cap not applied: %d", got.Inject.MaxPayloadsPerParam)
		}
		if got.Workers != maxWorkersCeiling {
			t.Errorf("workers not clamped: %d", got.Workers)
		}
	})

	t.Run("shared defaults are not mutated", func(t *testing.T) {
		shared := crawler.DefaultConfig()
		base := Options{Crawl: shared, Inject: injection.DefaultConfig()}
		_ = Overrides{MaxDepth: intp(1)}.Apply(base)
		if shared.MaxDepth == 1 {
			t.Error("override leaked into the shared config")
		}
	})

	t.Run("nil configs get defaults first", func(t *testing.T) {
		got := Overrides{MaxDepth: intp(1), MaxPayloadsPerParam: intp(5)}.Apply(Options{})
		if got.Crawl == nil || got.Crawl.MaxDepth != 1 {
			t.Errorf("expected crawl config with depth 1, got %+v", got.Crawl)
		}
		if got.Inject == nil || got.Inject.MaxPayloadsPerParam != 5 {
			t.Errorf("expected inject config with cap 5, got %+v", got.Inject)
		}
	})
}
