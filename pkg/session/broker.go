package session

import "sync"

// EventKind discriminates stream events.
type EventKind string

const (
	// EventStatus carries a partial status update.
	EventStatus EventKind = "status"

	// EventLog carries one appended log line.
	EventLog EventKind = "log"
)

// StatusDelta is the partial status published with a status event. Pointer
// fields are only set when the value changed.
type StatusDelta struct {
	State    State    `json:"state,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
	Counters *Counters `json:"counters,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Event is one item on a session's live stream.
type Event struct {
	Kind   EventKind    `json:"kind"`
	Status *StatusDelta `json:"status,omitempty"`
	Line   string       `json:"line,omitempty"`
}

// broker fans session events out to live subscribers. Publishing never
// blocks: a subscriber that cannot keep up loses events rather than slowing
// the scan. Subscribers poll a snapshot to resynchronize.
type broker struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Event]struct{})}
}

// subscribe registers a new subscriber. The returned channel is closed when
// the session reaches a terminal state. Returns nil if already closed.
func (b *broker) subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	ch := make(chan Event, 64)
	b.subs[ch] = struct{}{}
	return ch
}

func (b *broker) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Slow reader; drop rather than block the writer.
		}
	}
}

// close ends the stream for all subscribers. Idempotent.
func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
