// Package workerpool provides a bounded goroutine pool. The injection phase
// fans out per-target work through a pool so a scan cannot overwhelm the
// target host or the local network stack.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool runs submitted tasks on a fixed number of worker goroutines.
// Workers start lazily on first submit.
type Pool struct {
	workers int32
	tasks   chan func()
	running int32
	closed  int32
	wg      sync.WaitGroup
}

// New creates a pool with the given worker count. Non-positive counts fall
// back to GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		workers: int32(workers),
		tasks:   make(chan func(), workers*4),
	}
}

// Submit queues task for execution. Blocks when the queue is full; returns
// false if the pool is closed.
func (p *Pool) Submit(task func()) bool {
	if atomic.LoadInt32(&p.closed) == 1 {
		return false
	}
	for {
		running := atomic.LoadInt32(&p.running)
		if running >= p.workers {
			break
		}
		if atomic.CompareAndSwapInt32(&p.running, running, running+1) {
			p.wg.Add(1)
			go p.worker()
			break
		}
	}
	p.tasks <- task
	return true
}

func (p *Pool) worker() {
	defer func() {
		atomic.AddInt32(&p.running, -1)
		p.wg.Done()
	}()
	for task := range p.tasks {
		if task != nil {
			task()
		}
	}
}

// Running returns the current worker count.
func (p *Pool) Running() int {
	return int(atomic.LoadInt32(&p.running))
}

// Cap returns the worker capacity.
func (p *Pool) Cap() int {
	return int(atomic.LoadInt32(&p.workers))
}

// Close drains pending tasks and stops all workers. Safe to call twice.
func (p *Pool) Close() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	close(p.tasks)
	p.wg.Wait()
}
