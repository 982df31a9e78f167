// Package eventbus decouples the engine from its observers. Run and
// assignment events fan out to subscribers without ever blocking the
// optimization path; a slow observer loses events rather than stalling a run.
package eventbus

import (
	"sync"
	"time"
)

// RunEvent is published once per completed engine action.
type RunEvent struct {
	RunID        string
	Action       string
	Scorer       string
	SolverStatus string
	TotalBlocks  int
	Assigned     int
	Unassigned   int
	Duration     time.Duration
	Err          error
}

// AssignmentEvent is published for each assignment the optimizer emits.
type AssignmentEvent struct {
	RunID     string
	BlockID   string
	DriverID  string
	MatchType string
	Score     float64
}

// Bus is a fan-out publish/subscribe bus for events of type T.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   []chan T
	closed bool
}

// New creates an open bus.
func New[T any]() *Bus[T] { return &Bus[T]{} }

// Publish delivers the event to every subscriber. Delivery is non-blocking;
// a full subscriber channel drops the event.
func (b *Bus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber and returns its channel. Subscribing to
// a closed bus yields an already-closed channel.
func (b *Bus[T]) Subscribe() <-chan T {
	ch := make(chan T, 16)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes every subscriber channel and rejects further publishes.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
