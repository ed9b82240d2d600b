package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wvscan/wvscan/pkg/duration"
)

// ErrNotFound means no session exists for the given id. Evicted sessions
// look identical to ones that never existed.
var ErrNotFound = errors.New("session: not found")

// Factory builds the per-scan Options for a target URL. The serving layer
// installs one at startup so the registry stays ignorant of configuration.
type Factory func(targetURL string) Options

// Registry holds live and recently finished sessions, keyed by scan id.
// Terminal sessions stick around for duration.SessionTTL so late report
// requests still succeed, then a janitor evicts them.
type Registry struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRegistry creates a registry and starts its eviction janitor.
func NewRegistry(factory Factory) *Registry {
	r := &Registry{
		factory:  factory,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Create registers a new session for targetURL and starts it immediately.
// The returned session is already running (or about to be); callers poll or
// subscribe for progress. The scan outlives ctx: a short-lived request
// context only carries values, not its cancellation.
func (r *Registry) Create(ctx context.Context, targetURL string, ov Overrides) *Session {
	s := New(uuid.NewString(), targetURL, ov.Apply(r.factory(targetURL)))

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	s.Start(context.WithoutCancel(ctx))
	return s
}

// Get returns the session for id or ErrNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Len reports how many sessions are currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the janitor and cancels every non-terminal session.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Cancel("registry shutting down")
	}
}

// janitor evicts sessions that have been terminal longer than the TTL.
// Running sessions are never evicted regardless of age.
func (r *Registry) janitor() {
	ticker := time.NewTicker(duration.EvictSweep)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictExpired(time.Now().UTC())
		}
	}
}

func (r *Registry) evictExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		snap := s.Snapshot()
		if !snap.State.Terminal() {
			continue
		}
		if now.Sub(snap.CompletedAt) > duration.SessionTTL {
			delete(r.sessions, id)
		}
	}
}
