package regexcache

import (
	"sync"
	"testing"
)

func TestGet(t *testing.T) {
	Clear()

	re1, err := Get(`<script[^>]*>`)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	re2, err := Get(`<script[^>]*>`)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if re1 != re2 {
		t.Error("expected the cached instance on the second lookup")
	}

	if _, err := Get(`([`); err == nil {
		t.Error("expected an error for a broken pattern")
	}
}

func TestMustGet(t *testing.T) {
	if !MustGet(`(?i)alert`).MatchString("ALERT(1)") {
		t.Error("expected match")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for a broken pattern")
		}
	}()
	MustGet(`([`)
}

func TestConcurrentAccess(t *testing.T) {
	Clear()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			MustGet(`on\w+\s*=`).MatchString("<img onerror=alert(1)>")
		}()
	}
	wg.Wait()
}
