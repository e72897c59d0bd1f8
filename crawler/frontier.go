package crawler

import (
	"context"
	"sync/atomic"

	"github.com/antigloss/go/concurrent/container/queue"
)

// Frontier is the unbounded FIFO of page URLs waiting for a worker. Pushes
// never block, so a worker can schedule any number of children while holding
// a budget seat.
type Frontier struct {
	queue *queue.LockfreeQueue
	size  atomic.Int64
	wake  chan struct{}
}

func NewFrontier() *Frontier {
	return &Frontier{
		queue: queue.NewLockfreeQueue(),
		wake:  make(chan struct{}, 1),
	}
}

func (f *Frontier) Push(url string) {
	f.size.Add(1)
	f.queue.Push(url)
	f.notify()
}

// Pop blocks until a URL is available. It returns false once done is closed
// or ctx is cancelled.
func (f *Frontier) Pop(ctx context.Context, done <-chan struct{}) (string, bool) {
	for {
		if v := f.queue.Pop(); v != nil {
			// Pass the wakeup on so other waiting consumers see the remaining items.
			if f.size.Add(-1) > 0 {
				f.notify()
			}
			return v.(string), true
		}
		select {
		case <-f.wake:
		case <-done:
			return "", false
		case <-ctx.Done():
			return "", false
		}
	}
}

// Len is the number of queued URLs.
func (f *Frontier) Len() int { return int(f.size.Load()) }

func (f *Frontier) notify() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Drain discards every queued URL and returns how many were dropped.
func (f *Frontier) Drain() int {
	n := 0
	for f.queue.Pop() != nil {
		f.size.Add(-1)
		n++
	}
	return n
}
