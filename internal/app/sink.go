package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/jsonbatch/internal/batch"
	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/metrics"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

// DefaultShutdownTimeout bounds the drain when SinkConfig leaves it unset.
const DefaultShutdownTimeout = 30 * time.Second

// Deliverer is the asynchronous delivery side of a sink.
type Deliverer interface {
	ports.BatchSender

	// Start begins servicing queued split children and retries.
	Start(ctx context.Context)

	// Close waits for every outstanding delivery to reach a terminal outcome.
	Close(ctx context.Context) error
}

// SinkConfig contains the batching settings of a sink.
type SinkConfig struct {
	FlushSize       int
	IdleFlush       time.Duration
	ShutdownTimeout time.Duration
}

// Sink accepts records from producers, batches them, and hands every batch
// to the deliverer.
type Sink struct {
	cfg       SinkConfig
	batcher   *batch.Batcher
	deliverer Deliverer
	counters  *metrics.Counters
	logger    ports.Logger
}

// NewSink wires a batcher in front of deliverer.
func NewSink(cfg SinkConfig, deliverer Deliverer, counters *metrics.Counters, logger ports.Logger) (*Sink, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	b, err := batch.NewBatcher(cfg.FlushSize, cfg.IdleFlush, deliverer.Send, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	return &Sink{
		cfg:       cfg,
		batcher:   b,
		deliverer: deliverer,
		counters:  counters,
		logger:    logger,
	}, nil
}

// Receive buffers one record. It blocks while a size-triggered flush waits
// for a delivery token. After shutdown began it returns domain.ErrClosed.
func (s *Sink) Receive(ctx context.Context, r domain.Record) error {
	return s.batcher.Receive(ctx, r)
}

// Run drives the idle flush timer until ctx is canceled, then drains: the
// pending buffer is flushed and Run waits up to the shutdown timeout for
// every delivery to settle.
func (s *Sink) Run(ctx context.Context) error {
	s.deliverer.Start(ctx)
	s.logger.Info("sink running",
		ports.Int("flush_size", s.cfg.FlushSize),
		ports.Duration("idle_flush_time", s.cfg.IdleFlush),
	)

	s.batcher.Run(ctx)
	return s.drain()
}

func (s *Sink) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	final := s.batcher.Close()
	// Producers that swapped a full buffer before Close may still be handing
	// it over; the deliverer must see those sends before it closes.
	if err := s.batcher.Wait(ctx); err != nil {
		s.logger.Warn("flush still waiting for a delivery slot at shutdown deadline", ports.Err(err))
	}
	if !final.Empty() {
		s.logger.Debug("flushing batch",
			ports.String("batch", final.ID),
			ports.String("trigger", "shutdown"),
			ports.Int("records", final.Size()),
		)
		s.deliverer.Send(ctx, final)
	}

	err := s.deliverer.Close(ctx)

	snap := s.counters.Snapshot()
	s.logger.Info("sink drained",
		ports.Int64("delivered", snap.Delivered),
		ports.Int64("failed", snap.Failed),
		ports.Int64("splits", snap.Splits),
		ports.Int64("retries", snap.Retries),
	)
	return err
}

// Feed reads src until it is exhausted and receives every record. It
// returns the number of records accepted.
func (s *Sink) Feed(ctx context.Context, src ports.RecordSource) (int, error) {
	n := 0
	for {
		r, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read record: %w", err)
		}
		if err := s.Receive(ctx, r); err != nil {
			return n, err
		}
		n++
	}
}

// Pending returns the number of records waiting for the next flush.
func (s *Sink) Pending() int {
	return s.batcher.Pending()
}

// Stats returns the current delivery counters.
func (s *Sink) Stats() metrics.Snapshot {
	return s.counters.Snapshot()
}
