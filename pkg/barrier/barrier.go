// Package barrier provides the one-shot start barrier and the counting
// readiness latch that synchronize a run: workers arrive at the latch once
// initialized, block on the barrier, and are released together by a single
// broadcast.
package barrier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrLatchOverflow reports an arrival beyond the latch capacity.
var ErrLatchOverflow = errors.New("barrier: arrival exceeds latch capacity")

// Start is a one-shot broadcast barrier. Waiters block until Release, which
// frees all of them simultaneously; releasing more than once is impossible
// by construction.
type Start struct {
	once     sync.Once
	released chan struct{}
}

// NewStart returns a closed barrier.
func NewStart() *Start {
	return &Start{released: make(chan struct{})}
}

// Wait blocks the caller until the barrier is released.
func (s *Start) Wait() {
	<-s.released
}

// Release opens the barrier, transitioning every blocked waiter to runnable
// at once. Further calls are no-ops.
func (s *Start) Release() {
	s.once.Do(func() {
		close(s.released)
	})
}

// Released reports whether the barrier has been opened.
func (s *Start) Released() bool {
	select {
	case <-s.released:
		return true
	default:
		return false
	}
}

// Latch counts arrivals up to a fixed capacity and unblocks waiters once
// every expected party has arrived.
type Latch struct {
	capacity int32
	arrived  atomic.Int32
	done     chan struct{}
}

// NewLatch returns a latch expecting n arrivals. A zero-capacity latch is
// born satisfied.
func NewLatch(n int) *Latch {
	latch := &Latch{capacity: int32(n), done: make(chan struct{})}
	if n <= 0 {
		close(latch.done)
	}

	return latch
}

// Arrive registers one party as ready. The arrival completing the expected
// count unblocks Wait; arrivals beyond capacity are rejected.
func (l *Latch) Arrive() error {
	count := l.arrived.Add(1)
	if count > l.capacity {
		return fmt.Errorf("%w: %d arrivals for capacity %d", ErrLatchOverflow, count, l.capacity)
	}

	if count == l.capacity {
		close(l.done)
	}

	return nil
}

// Wait blocks until all expected parties have arrived or the context ends.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("barrier: latch wait: %w", ctx.Err())
	}
}

// Arrived returns the number of registered arrivals.
func (l *Latch) Arrived() int {
	return int(l.arrived.Load())
}
