package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool(t *testing.T) {
	t.Run("runs all submitted tasks", func(t *testing.T) {
		p := New(4)
		var count int64
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			p.Submit(func() {
				defer wg.Done()
				atomic.AddInt64(&count, 1)
			})
		}
		wg.Wait()
		p.Close()
		if count != 100 {
			t.Errorf("expected 100 tasks run, got %d", count)
		}
	})

	t.Run("worker count stays bounded", func(t *testing.T) {
		p := New(3)
		block := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go p.Submit(func() {
				defer wg.Done()
				<-block
			})
		}
		time.Sleep(50 * time.Millisecond)
		if got := p.Running(); got > 3 {
			t.Errorf("worker count %d exceeds cap %d", got, p.Cap())
		}
		close(block)
		wg.Wait()
		p.Close()
	})

	t.Run("submit after close returns false", func(t *testing.T) {
		p := New(1)
		p.Close()
		if p.Submit(func() {}) {
			t.Error("expected Submit to refuse after Close")
		}
	})

	t.Run("double close is safe", func(t *testing.T) {
		p := New(1)
		p.Close()
		p.Close()
	})

	t.Run("non-positive size falls back", func(t *testing.T) {
		p := New(0)
		if p.Cap() <= 0 {
			t.Errorf("expected positive capacity, got %d", p.Cap())
		}
		p.Close()
	})
}
