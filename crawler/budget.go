package crawler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the number of page loads allowed in flight at once.
const DefaultConcurrency = 10

// Budget is the fixed-capacity seat pool shared by all page-crawl tasks of a
// run. A seat is held for the whole fetch and released when the task ends.
type Budget struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewBudget returns a budget with the given capacity. Non-positive capacities
// fall back to DefaultConcurrency.
func NewBudget(capacity int) *Budget {
	if capacity <= 0 {
		capacity = DefaultConcurrency
	}
	return &Budget{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a seat is free or ctx is done.
func (b *Budget) Acquire(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := b.inFlight.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

// Release returns a seat acquired with Acquire.
func (b *Budget) Release() {
	b.inFlight.Add(-1)
	b.sem.Release(1)
}

func (b *Budget) Capacity() int { return int(b.capacity) }

// InFlight is the number of seats currently held.
func (b *Budget) InFlight() int { return int(b.inFlight.Load()) }

// Peak is the highest number of seats ever held at once.
func (b *Budget) Peak() int { return int(b.peak.Load()) }
