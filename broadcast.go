package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSubscriptionClosed is returned by WaitForChange after the subscription is closed.
var ErrSubscriptionClosed = errors.New("subscription closed")

// slotState is never mutated after it is stored. changed is closed when
// the state is superseded.
type slotState struct {
	value   string
	version uint64
	changed chan struct{}
}

// Broadcaster holds the latest published value. Publishing overwrites it and
// wakes every waiting subscriber; nothing is queued, so a subscriber that is
// busy across several publishes only sees the last one. If every value ever
// needs to reach a viewer, that takes a bounded queue per subscriber instead.
type Broadcaster struct {
	writeMu     sync.Mutex
	state       atomic.Pointer[slotState]
	subscribers atomic.Int64
}

func newBroadcaster() *Broadcaster {
	b := &Broadcaster{}
	b.state.Store(&slotState{changed: make(chan struct{})})
	return b
}

// Publish replaces the current value. It never blocks on subscribers.
func (b *Broadcaster) Publish(value string) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	prev := b.state.Load()
	b.state.Store(&slotState{
		value:   value,
		version: prev.version + 1,
		changed: make(chan struct{}),
	})
	close(prev.changed)
}

// Latest returns the current value and its version.
func (b *Broadcaster) Latest() (string, uint64) {
	s := b.state.Load()
	return s.value, s.version
}

// Subscribers reports the number of open subscriptions.
func (b *Broadcaster) Subscribers() int {
	return int(b.subscribers.Load())
}

// Subscribe returns a handle positioned at the current version: its first
// WaitForChange returns only after the next Publish.
func (b *Broadcaster) Subscribe() *Subscription {
	b.subscribers.Add(1)
	return &Subscription{
		b:      b,
		seen:   b.state.Load().version,
		closed: make(chan struct{}),
	}
}

// Subscription is a read cursor into a Broadcaster. It is owned by a single
// goroutine; only Close may be called concurrently with WaitForChange.
type Subscription struct {
	b         *Broadcaster
	seen      uint64
	closed    chan struct{}
	closeOnce sync.Once
}

// WaitForChange blocks until a value newer than the last one this
// subscription returned is published, then returns the latest value.
// Versions published in between are skipped.
func (s *Subscription) WaitForChange(ctx context.Context) (string, error) {
	for {
		select {
		case <-s.closed:
			return "", ErrSubscriptionClosed
		default:
		}

		st := s.b.state.Load()
		if st.version > s.seen {
			s.seen = st.version
			return st.value, nil
		}

		select {
		case <-st.changed:
		case <-s.closed:
			return "", ErrSubscriptionClosed
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.b.subscribers.Add(-1)
	})
}
