package dispatch

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/bft-labs/jsonbatch/internal/domain"
)

// workItem is one pending delivery: a batch, how many whole-batch retries
// it already went through, and its retry schedule (nil when it may not be
// retried as a whole).
type workItem struct {
	batch    domain.Batch
	attempt  int
	schedule backoff.BackOff
}

// workQueue is an unbounded FIFO of work items. Pushing never blocks, so
// delivery callbacks can resubmit without waiting on the dispatch loop.
type workQueue struct {
	mu     sync.Mutex
	items  []workItem
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func newWorkQueue() *workQueue {
	return &workQueue{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push appends an item. It returns false once the queue is closed.
func (q *workQueue) push(it workItem) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// pop blocks until an item is available, the queue is closed, or ctx is done.
func (q *workQueue) pop(ctx context.Context) (workItem, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items[0] = workItem{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return it, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return workItem{}, false
		}

		select {
		case <-q.signal:
		case <-q.done:
		case <-ctx.Done():
			return workItem{}, false
		}
	}
}

// close rejects further pushes and returns the items still queued.
func (q *workQueue) close() []workItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	rest := q.items
	q.items = nil
	return rest
}

// Len returns the number of queued items.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
