// Package broadcast is a small generic stand-in for Rust's
// tokio::sync::broadcast channel, used anywhere the domain needs
// fan-out-to-many-subscribers-with-lag-resync semantics: the type
// registry's change feed and the lifecycle manager's event bus both
// need "every subscriber sees every message, or is told it fell
// behind" rather than work-queue delivery. Go's stdlib has no
// broadcast channel (chan fan-out is one-to-one per receive), so this
// is hand-rolled; it is deliberately minimal — a ring buffer plus one
// cursor per subscriber — rather than a byte-for-byte port of tokio's
// lock-free implementation.
package broadcast

import (
	"context"
	"sync"
)

// Lagged is returned by Recv when a subscriber's cursor fell more than
// capacity messages behind the writer; n is how many were skipped.
type Lagged struct{ N uint64 }

func (Lagged) Error() string { return "subscriber lagged behind broadcast buffer" }

// Closed is returned once the sender has been closed and the
// subscriber has drained everything still in its window.
type Closed struct{}

func (Closed) Error() string { return "broadcast channel closed" }

// Sender is the single writer side of a broadcast channel of T.
type Sender[T any] struct {
	mu       sync.Mutex
	wake     chan struct{} // closed and replaced on every Send/Close
	buf      []T
	start    uint64 // sequence number of buf[0]
	next     uint64 // sequence number of the next Send
	capacity int
	closed   bool
}

func NewSender[T any](capacity int) *Sender[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Sender[T]{capacity: capacity, wake: make(chan struct{})}
}

// Send appends a message, ignoring the case of zero subscribers (as
// tokio::sync::broadcast does: Send never blocks on slow readers).
func (s *Sender[T]) Send(msg T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.buf = append(s.buf, msg)
	s.next++
	if len(s.buf) > s.capacity {
		drop := len(s.buf) - s.capacity
		s.buf = s.buf[drop:]
		s.start += uint64(drop)
	}
	close(s.wake)
	s.wake = make(chan struct{})
}

// Close marks the channel closed; subscribers drain remaining
// buffered messages then receive Closed.
func (s *Sender[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.wake)
	s.wake = make(chan struct{})
}

// Subscribe returns a new Receiver positioned at "now" (it will only
// see messages sent after this call, matching tokio's subscribe()).
func (s *Sender[T]) Subscribe() *Receiver[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Receiver[T]{s: s, cursor: s.next}
}

// Receiver is one subscriber's read cursor into the shared buffer.
type Receiver[T any] struct {
	s      *Sender[T]
	cursor uint64
}

// Recv blocks until a message is available, returning (msg, nil),
// or (zero, Lagged{N: n}) if the cursor fell behind the retained
// window, or (zero, Closed{}) once the channel is closed and
// drained.
func (r *Receiver[T]) Recv() (T, error) {
	return r.RecvCtx(context.Background())
}

// RecvCtx is Recv with cancellation.
func (r *Receiver[T]) RecvCtx(ctx context.Context) (T, error) {
	s := r.s
	var zero T
	for {
		s.mu.Lock()
		if r.cursor < s.start {
			skipped := s.start - r.cursor
			r.cursor = s.start
			s.mu.Unlock()
			return zero, Lagged{N: skipped}
		}
		idx := r.cursor - s.start
		if idx < uint64(len(s.buf)) {
			msg := s.buf[idx]
			r.cursor++
			s.mu.Unlock()
			return msg, nil
		}
		if s.closed {
			s.mu.Unlock()
			return zero, Closed{}
		}
		wake := s.wake
		s.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// TryRecv is the non-blocking variant, returning ok=false if nothing
// is currently available and the channel isn't closed.
func (r *Receiver[T]) TryRecv() (msg T, err error, ok bool) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.cursor < s.start {
		skipped := s.start - r.cursor
		r.cursor = s.start
		return msg, Lagged{N: skipped}, true
	}
	idx := r.cursor - s.start
	if idx < uint64(len(s.buf)) {
		m := s.buf[idx]
		r.cursor++
		return m, nil, true
	}
	if s.closed {
		return msg, Closed{}, true
	}
	return msg, nil, false
}
