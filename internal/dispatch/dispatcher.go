// Package dispatch turns flushed batches into asynchronous HTTP deliveries.
//
// A Dispatcher serializes each batch to a JSON array, waits for a token from
// the pool, and starts a POST whose completion handler returns the token.
// Failed deliveries are handed to the retry policy; split children and
// whole-batch retries are pushed onto an internal work queue serviced by a
// single dispatch loop, so fan-out never grows the call stack.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	transport "github.com/bft-labs/jsonbatch/internal/adapters/http"
	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/metrics"
	"github.com/bft-labs/jsonbatch/internal/ports"
	"github.com/bft-labs/jsonbatch/internal/retry"
	"github.com/bft-labs/jsonbatch/internal/tokenpool"
)

// Config holds the delivery settings of a Dispatcher.
type Config struct {
	URL     string
	Headers map[string]string
	Policy  retry.Policy
}

// EventEmitter is notified about delivery outcomes. Calls happen on
// delivery goroutines and must return quickly.
type EventEmitter interface {
	OnDelivered(batch domain.Batch, status int, duration time.Duration)
	OnSplit(batch domain.Batch, children int, err error)
	OnRetry(batch domain.Batch, attempt int, err error)
	OnFailed(batch domain.Batch, err error)
}

// Dispatcher delivers batches with at most pool.Max() requests in flight.
type Dispatcher struct {
	url      string
	headers  atomic.Pointer[http.Header]
	policy   retry.Policy
	client   *transport.Client
	pool     *tokenpool.Pool
	counters *metrics.Counters
	logger   ports.Logger
	emitter  EventEmitter

	queue       *workQueue
	outstanding sync.WaitGroup

	// abortCtx is canceled when Close gives up; it bounds every token wait.
	abortCtx context.Context
	abort    context.CancelFunc

	// mu orders outstanding.Add in Send before outstanding.Wait in Close.
	mu         sync.Mutex
	closed     bool
	started    bool
	stopWorker context.CancelFunc
	workerDone chan struct{}
}

// New creates a dispatcher. The emitter may be nil.
func New(
	cfg Config,
	client *transport.Client,
	pool *tokenpool.Pool,
	counters *metrics.Counters,
	logger ports.Logger,
	emitter EventEmitter,
) *Dispatcher {
	abortCtx, abort := context.WithCancel(context.Background())
	d := &Dispatcher{
		abortCtx:   abortCtx,
		abort:      abort,
		url:        cfg.URL,
		policy:     cfg.Policy,
		client:     client,
		pool:       pool,
		counters:   counters,
		logger:     logger,
		emitter:    emitter,
		queue:      newWorkQueue(),
		workerDone: make(chan struct{}),
	}
	h := buildHeader(cfg.Headers)
	d.headers.Store(&h)
	return d
}

// Start runs the loop that services split children and retries.
// The loop stops when Close returns, not when ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.stopWorker = cancel
	go d.run(workerCtx)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.workerDone)
	for {
		item, ok := d.queue.pop(ctx)
		if !ok {
			return
		}
		d.dispatch(ctx, item)
	}
}

// Send delivers batch asynchronously. It blocks only while waiting for a
// token; if ctx ends, or Close reaches its deadline first, the batch is
// counted as failed.
func (d *Dispatcher) Send(ctx context.Context, batch domain.Batch) {
	if batch.Empty() {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.fail(workItem{batch: batch}, domain.ErrDispatchAborted, domain.Outcome{}, nil, nil)
		return
	}
	d.outstanding.Add(1)
	d.mu.Unlock()

	d.dispatch(ctx, workItem{batch: batch, schedule: d.policy.NewBackOff()})
}

// SetHeaders replaces the user headers used by subsequent requests.
func (d *Dispatcher) SetHeaders(headers map[string]string) {
	h := buildHeader(headers)
	d.headers.Store(&h)
	d.logger.Info("request headers updated", ports.Any("headers", headerNames(h)))
}

// Headers returns a copy of the headers sent with each request.
func (d *Dispatcher) Headers() http.Header {
	return d.headers.Load().Clone()
}

// Close waits until every outstanding batch, including split children and
// scheduled retries, reaches a terminal outcome, then drains the token pool.
// If ctx ends first, queued work and batches still waiting for a token are
// counted as failed and Close returns domain.ErrShutdownTimeout; requests
// already in flight still complete.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	defer d.abort()

	settled := make(chan struct{})
	go func() {
		d.outstanding.Wait()
		close(settled)
	}()

	var timedOut bool
	select {
	case <-settled:
	case <-ctx.Done():
		timedOut = true
		d.abort()
	}

	d.mu.Lock()
	stop, started := d.stopWorker, d.started
	d.mu.Unlock()
	if started {
		stop()
		<-d.workerDone
	}
	for _, item := range d.queue.close() {
		d.fail(item, domain.ErrDispatchAborted, domain.Outcome{}, nil, nil)
		d.outstanding.Done()
	}

	if timedOut {
		d.logger.Warn("shutdown deadline reached with deliveries outstanding",
			ports.Int("in_flight", d.pool.InUse()),
		)
		return fmt.Errorf("%w: %w", domain.ErrShutdownTimeout, ctx.Err())
	}
	if err := d.pool.Drain(ctx); err != nil {
		return fmt.Errorf("%w: drain tokens: %w", domain.ErrShutdownTimeout, err)
	}
	return nil
}

// QueueLen returns the number of split children and retries waiting for dispatch.
func (d *Dispatcher) QueueLen() int {
	return d.queue.Len()
}

// dispatch builds and starts the request for item. Exactly one of the
// terminal paths calls d.outstanding.Done for item, or hands its slot to
// children or a retry.
func (d *Dispatcher) dispatch(ctx context.Context, item workItem) {
	header := *d.headers.Load()

	body, err := json.Marshal(item.batch.Records)
	if err != nil {
		err = fmt.Errorf("%w: encode batch: %w", domain.ErrRequestConstruction, err)
		d.handleFailure(item, domain.TransportFailure(err), nil, header)
		return
	}

	// Building the request before acquiring a token means a construction
	// failure never holds a token.
	req, err := d.client.NewPost(context.Background(), d.url, body, header)
	if err != nil {
		d.handleFailure(item, domain.TransportFailure(err), body, header)
		return
	}

	tok, err := d.acquire(ctx, item)
	if err != nil {
		d.fail(item, fmt.Errorf("%w: %w", domain.ErrDispatchAborted, err), domain.Outcome{}, body, header)
		d.outstanding.Done()
		return
	}
	d.counters.SetInFlight(d.pool.InUse())

	start := time.Now()
	req.OnComplete(func() {
		tok.Release()
		d.counters.SetInFlight(d.pool.InUse())
		d.counters.ObserveLatency(start)
	}).OnSuccess(func(resp *transport.Response) {
		outcome := domain.StatusOutcome(resp.StatusCode, resp.Body)
		if outcome.OK() {
			d.delivered(item, outcome, time.Since(start))
			return
		}
		d.handleFailure(item, outcome, body, header)
	}).OnFailure(func(err error) {
		d.handleFailure(item, domain.TransportFailure(err), body, header)
	})

	if err := req.Start(); err != nil {
		tok.Release()
		d.handleFailure(item, domain.TransportFailure(err), body, header)
	}
}

// acquire takes a token without blocking when one is free. Otherwise it
// waits until ctx ends or Close gives up.
func (d *Dispatcher) acquire(ctx context.Context, item workItem) (*tokenpool.Token, error) {
	if tok := d.pool.TryAcquire(); tok != nil {
		return tok, nil
	}
	d.logger.Debug("delivery pool saturated, waiting for a token",
		ports.String("batch", item.batch.ID),
		ports.Int("pool_max", d.pool.Max()),
	)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(d.abortCtx, cancel)
	defer stop()

	tok, err := d.pool.Acquire(waitCtx)
	if err != nil && d.abortCtx.Err() != nil && ctx.Err() == nil {
		return nil, domain.ErrShutdownTimeout
	}
	return tok, err
}

func (d *Dispatcher) delivered(item workItem, outcome domain.Outcome, took time.Duration) {
	status := outcome.StatusCode
	total := d.counters.Delivered(item.batch.Size())
	d.logger.Debug("batch delivered",
		ports.String("batch", item.batch.ID),
		ports.Int("records", item.batch.Size()),
		ports.Int("status", status),
		ports.Duration("duration", took),
		ports.Int64("delivered_total", total),
	)
	if d.emitter != nil {
		d.emitter.OnDelivered(item.batch, status, took)
	}
	d.outstanding.Done()
}

func (d *Dispatcher) handleFailure(item workItem, outcome domain.Outcome, body []byte, header http.Header) {
	decision := d.policy.Decide(item.batch, item.attempt, item.schedule, outcome.Err)

	switch decision.Action {
	case retry.Split:
		children := item.batch.Split()
		d.counters.Split()
		d.logger.Warn("batch failed, retrying records individually",
			ports.String("batch", item.batch.ID),
			ports.Int("records", item.batch.Size()),
			ports.String("outcome", outcome.Kind.String()),
			ports.Err(outcome.Err),
		)
		if d.emitter != nil {
			d.emitter.OnSplit(item.batch, len(children), outcome.Err)
		}
		d.outstanding.Add(len(children))
		for _, child := range children {
			d.enqueue(workItem{batch: child})
		}
		d.outstanding.Done()

	case retry.Retry:
		next := workItem{batch: item.batch, attempt: item.attempt + 1, schedule: item.schedule}
		d.counters.Retried()
		d.logger.Warn("batch failed, retrying",
			ports.String("batch", item.batch.ID),
			ports.Int("records", item.batch.Size()),
			ports.Int("attempt", next.attempt),
			ports.Duration("delay", decision.Delay),
			ports.Err(outcome.Err),
		)
		if d.emitter != nil {
			d.emitter.OnRetry(item.batch, next.attempt, outcome.Err)
		}
		// The retry keeps the outstanding slot of the failed attempt.
		if decision.Delay <= 0 {
			d.enqueue(next)
			return
		}
		time.AfterFunc(decision.Delay, func() { d.enqueue(next) })

	default:
		d.fail(item, decision.Reason, outcome, body, header)
		d.outstanding.Done()
	}
}

// enqueue hands item to the dispatch loop. If the dispatcher already shut
// down the item is counted as failed.
func (d *Dispatcher) enqueue(item workItem) {
	if d.queue.push(item) {
		return
	}
	d.fail(item, domain.ErrDispatchAborted, domain.Outcome{}, nil, nil)
	d.outstanding.Done()
}

// fail records a terminal failure. It does not touch d.outstanding.
func (d *Dispatcher) fail(item workItem, reason error, outcome domain.Outcome, body []byte, header http.Header) {
	if reason == nil {
		reason = outcome.Err
	}
	total := d.counters.Failed(item.batch.Size())

	fields := []ports.Field{
		ports.String("batch", item.batch.ID),
		ports.Int("records", item.batch.Size()),
		ports.String("url", d.url),
		ports.String("method", http.MethodPost),
		ports.Any("headers", maskHeaders(header)),
		ports.String("body", string(body)),
		ports.String("class", errorClass(outcome.Err, reason)),
		ports.String("message", reason.Error()),
		ports.Int64("failed_total", total),
	}
	if outcome.Kind == domain.OutcomeHTTPFailure {
		fields = append(fields, ports.Int("status", outcome.StatusCode))
	}
	d.logger.Error("[HTTP Output Failure] could not deliver batch", fields...)

	if d.emitter != nil {
		d.emitter.OnFailed(item.batch, reason)
	}
}

// errorClass names the type of the underlying failure.
func errorClass(cause, reason error) string {
	err := cause
	if err == nil {
		err = reason
	}
	var te *domain.TransportError
	if errors.As(err, &te) && te.Err != nil {
		err = te.Err
	}
	return fmt.Sprintf("%T", err)
}
