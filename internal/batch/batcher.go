package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

// FlushFunc receives every batch produced by a flush. It is called outside
// the batcher lock, in the goroutine that triggered the flush. The context
// it gets carries the caller's values but not its cancellation: once a
// batch left the buffer, the deliverer owns its deadline.
type FlushFunc func(ctx context.Context, b domain.Batch)

// Batcher accumulates records into batches. A batch is flushed when the
// pending buffer reaches the flush size or, on each idle tick, when records
// are pending and no flush happened since the previous tick.
type Batcher struct {
	mu      sync.Mutex
	pending []domain.Record
	flushed bool
	closed  bool

	// inflight counts batches swapped out but not yet returned from
	// onFlush. Add happens under mu while closed is false.
	inflight sync.WaitGroup

	flushSize int
	idleFlush time.Duration
	onFlush   FlushFunc
	logger    ports.Logger
}

// NewBatcher creates a batcher. Call Run to start the idle timer.
func NewBatcher(flushSize int, idleFlush time.Duration, onFlush FlushFunc, logger ports.Logger) (*Batcher, error) {
	if flushSize <= 0 {
		return nil, fmt.Errorf("flush size must be positive, got %d", flushSize)
	}
	if idleFlush <= 0 {
		return nil, fmt.Errorf("idle flush time must be positive, got %v", idleFlush)
	}
	return &Batcher{
		pending:   make([]domain.Record, 0, flushSize),
		flushSize: flushSize,
		idleFlush: idleFlush,
		onFlush:   onFlush,
		logger:    logger,
	}, nil
}

// Receive appends a record to the pending buffer. When the buffer reaches
// the flush size the batch is handed to the flush callback before Receive
// returns, so a saturated delivery pool stalls the caller.
func (b *Batcher) Receive(ctx context.Context, r domain.Record) error {
	if r == nil {
		return domain.ErrNilRecord
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.ErrClosed
	}
	b.pending = append(b.pending, r)
	var out []domain.Record
	if len(b.pending) >= b.flushSize {
		out = b.swapLocked()
		b.inflight.Add(1)
	}
	b.mu.Unlock()

	if out != nil {
		b.deliver(ctx, out, "size")
	}
	return nil
}

// Flush swaps out the pending buffer and returns it as a batch. The returned
// batch is empty when nothing was pending. Flush does not call the flush
// callback.
func (b *Batcher) Flush() domain.Batch {
	b.mu.Lock()
	out := b.swapLocked()
	b.mu.Unlock()

	if out == nil {
		return domain.Batch{}
	}
	return domain.NewBatch(out)
}

// Run drives the idle timer until ctx is done.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.idleFlush)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

// tick flushes pending records unless a flush already happened since the last tick.
func (b *Batcher) tick(ctx context.Context) {
	b.mu.Lock()
	var out []domain.Record
	if !b.closed && !b.flushed && len(b.pending) > 0 {
		out = b.swapLocked()
		b.inflight.Add(1)
	}
	b.flushed = false
	b.mu.Unlock()

	if out != nil {
		b.deliver(ctx, out, "idle")
	}
}

// Close rejects further records and returns whatever was still pending.
// Flushes already handed to the callback may still be running; see Wait.
func (b *Batcher) Close() domain.Batch {
	b.mu.Lock()
	b.closed = true
	out := b.swapLocked()
	b.mu.Unlock()

	if out == nil {
		return domain.Batch{}
	}
	return domain.NewBatch(out)
}

// Pending returns the number of buffered records.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Wait blocks until every flush started before Close returned from the
// flush callback, or until ctx is done. Call it after Close.
func (b *Batcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// swapLocked replaces the pending buffer with a fresh one and returns the
// old contents, or nil if it was empty. b.mu must be held.
func (b *Batcher) swapLocked() []domain.Record {
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = make([]domain.Record, 0, b.flushSize)
	b.flushed = true
	return out
}

func (b *Batcher) deliver(ctx context.Context, records []domain.Record, trigger string) {
	defer b.inflight.Done()
	batch := domain.NewBatch(records)
	b.logger.Debug("flushing batch",
		ports.String("batch", batch.ID),
		ports.String("trigger", trigger),
		ports.Int("records", batch.Size()),
	)
	if b.onFlush != nil {
		b.onFlush(context.WithoutCancel(ctx), batch)
	}
}
