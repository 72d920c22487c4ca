package jsonbatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	transport "github.com/bft-labs/jsonbatch/internal/adapters/http"
	logAdapter "github.com/bft-labs/jsonbatch/internal/adapters/log"
	"github.com/bft-labs/jsonbatch/internal/app"
	"github.com/bft-labs/jsonbatch/internal/dispatch"
	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/metrics"
	"github.com/bft-labs/jsonbatch/internal/ports"
	"github.com/bft-labs/jsonbatch/internal/retry"
	"github.com/bft-labs/jsonbatch/internal/tokenpool"
)

// Stats is a point-in-time view of the delivery counters.
type Stats struct {
	Delivered int64
	Failed    int64
	Splits    int64
	Retries   int64
	InFlight  int64
	Pending   int

	// Queued counts split children and retries waiting for dispatch.
	Queued int
}

// Sink batches records and POSTs each batch to an HTTP endpoint as a JSON
// array. Use New to create one, then Start before calling Receive.
type Sink struct {
	config     Config
	lifecycle  *app.Lifecycle
	sink       *app.Sink
	dispatcher *dispatch.Dispatcher
	pool       *tokenpool.Pool
	counters   *metrics.Counters
	logger     ports.Logger
	plugins    []Plugin

	mu     sync.Mutex
	used   bool
	runErr error
}

// New creates a sink in StateStopped. Unset sizes and durations get their
// defaults; the configuration is then validated.
func New(cfg Config, opts ...Option) (*Sink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	var counters *metrics.Counters
	if o.registry != nil && o.metricsPrefix != "" {
		counters = metrics.NewPrefixed(o.registry, o.metricsPrefix)
	} else {
		counters = metrics.New(o.registry)
	}

	client, err := transport.NewClient(o.httpClient, cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	pool, err := tokenpool.New(cfg.PoolMax)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	d := dispatch.New(dispatch.Config{
		URL:     cfg.URL,
		Headers: cfg.Headers,
		Policy: retry.Policy{
			RetryIndividual: cfg.RetryIndividual,
			MaxAttempts:     cfg.RetryMaxAttempts,
			Delay:           cfg.RetryDelay,
		},
	}, client, pool, counters, logger, emitter)

	s, err := app.NewSink(app.SinkConfig{
		FlushSize:       cfg.FlushSize,
		IdleFlush:       cfg.IdleFlushTime,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, d, counters, logger)
	if err != nil {
		return nil, err
	}

	return &Sink{
		config:     cfg,
		lifecycle:  app.NewLifecycle(logger, emitter),
		sink:       s,
		dispatcher: d,
		pool:       pool,
		counters:   counters,
		logger:     logger,
		plugins:    o.plugins,
	}, nil
}

// Start initializes plugins and starts the idle flush timer and the retry
// loop in the background. It returns ErrAlreadyRunning if the sink is not
// stopped. A sink is single use: after Stop, create a new one.
func (s *Sink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if s.used {
		return fmt.Errorf("%w: sink already drained", domain.ErrNotRunning)
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		URL:     s.config.URL,
		Headers: s.config.Headers,
		Logger:  s.logger,
		Sink:    s,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			s.shutdownPlugins(context.Background(), s.plugins[:i])
			cancel()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	s.used = true
	s.lifecycle.AddWorker()
	go func() {
		defer s.lifecycle.WorkerDone()

		if err := s.lifecycle.TransitionTo(app.StateRunning, "sink started"); err != nil {
			s.logger.Debug("stop requested before sink was running", ports.Err(err))
		}

		// Run drains before returning, even if Stop raced with startup.
		if err := s.sink.Run(runCtx); err != nil {
			s.logger.Error("sink drain incomplete", ports.Err(err))
			s.mu.Lock()
			s.runErr = err
			s.mu.Unlock()
		}
	}()

	return nil
}

// Receive hands one record to the sink. It blocks while a size-triggered
// flush waits for a free delivery slot. Delivery failures are never
// reported here; see Stats and EventHandler.
func (s *Sink) Receive(ctx context.Context, r Record) error {
	if !s.lifecycle.Accepting() {
		return domain.ErrNotRunning
	}
	if err := s.sink.Receive(ctx, r); err != nil {
		if errors.Is(err, domain.ErrClosed) {
			return domain.ErrNotRunning
		}
		return err
	}
	return nil
}

// Stop flushes pending records and waits until every delivery, including
// split children and retries, reached a terminal outcome. The drain is
// bounded by Config.ShutdownTimeout and by ctx. It returns ErrShutdownTimeout
// when work was abandoned.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lifecycle.Cancel()
	s.mu.Unlock()

	err := s.lifecycle.Wait(ctx)

	s.mu.Lock()
	if err == nil {
		err = s.runErr
	}
	s.mu.Unlock()

	s.shutdownPlugins(context.Background(), s.plugins)

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

func (s *Sink) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Sink) Status() State {
	return convertState(s.lifecycle.State())
}

// Stats returns the current delivery counters.
func (s *Sink) Stats() Stats {
	snap := s.counters.Snapshot()
	return Stats{
		Delivered: snap.Delivered,
		Failed:    snap.Failed,
		Splits:    snap.Splits,
		Retries:   snap.Retries,
		InFlight:  int64(s.pool.InUse()),
		Pending:   s.sink.Pending(),
		Queued:    s.dispatcher.QueueLen(),
	}
}

// SetHeaders replaces the request headers for batches dispatched from now
// on. Requests already built keep the headers they were built with.
func (s *Sink) SetHeaders(headers map[string]string) {
	s.dispatcher.SetHeaders(headers)
}

// Headers returns the headers currently sent with each request.
func (s *Sink) Headers() http.Header {
	return s.dispatcher.Headers()
}
