// Package metrics holds the running delivery totals of a sink.
//
// Counters are observability only: nothing in the delivery path reads them
// to make a decision. They are backed by a go-metrics registry so an
// embedding application can export them alongside its own metrics.
package metrics

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Metric names registered by Counters.
const (
	DeliveredRecords = "records.delivered"
	FailedRecords    = "records.failed"
	SplitBatches     = "batches.split"
	RetriedBatches   = "batches.retried"
	InFlight         = "deliveries.inflight"
	DeliveryLatency  = "deliveries.latency"
)

// Counters tracks terminal delivery outcomes. It is safe for concurrent use.
type Counters struct {
	registry  gometrics.Registry
	delivered gometrics.Counter
	failed    gometrics.Counter
	splits    gometrics.Counter
	retries   gometrics.Counter
	inflight  gometrics.Gauge
	latency   gometrics.Timer
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Delivered int64
	Failed    int64
	Splits    int64
	Retries   int64
	InFlight  int64
}

// New registers the sink metrics in r. A nil registry gets a private one.
func New(r gometrics.Registry) *Counters {
	if r == nil {
		r = gometrics.NewRegistry()
	}
	return &Counters{
		registry:  r,
		delivered: gometrics.GetOrRegisterCounter(DeliveredRecords, r),
		failed:    gometrics.GetOrRegisterCounter(FailedRecords, r),
		splits:    gometrics.GetOrRegisterCounter(SplitBatches, r),
		retries:   gometrics.GetOrRegisterCounter(RetriedBatches, r),
		inflight:  gometrics.GetOrRegisterGauge(InFlight, r),
		latency:   gometrics.GetOrRegisterTimer(DeliveryLatency, r),
	}
}

// NewPrefixed registers the sink metrics under "<prefix>." in r.
func NewPrefixed(r gometrics.Registry, prefix string) *Counters {
	if r == nil {
		r = gometrics.NewRegistry()
	}
	return New(gometrics.NewPrefixedChildRegistry(r, prefix+"."))
}

// Delivered records n records as successfully delivered and returns the new total.
func (c *Counters) Delivered(n int) int64 {
	c.delivered.Inc(int64(n))
	return c.delivered.Count()
}

// Failed records n records as terminally failed and returns the new total.
func (c *Counters) Failed(n int) int64 {
	c.failed.Inc(int64(n))
	return c.failed.Count()
}

// Split records one batch split into children.
func (c *Counters) Split() {
	c.splits.Inc(1)
}

// Retried records one whole-batch retry.
func (c *Counters) Retried() {
	c.retries.Inc(1)
}

// SetInFlight updates the in-flight deliveries gauge.
func (c *Counters) SetInFlight(n int) {
	c.inflight.Update(int64(n))
}

// ObserveLatency records the duration of one delivery attempt.
func (c *Counters) ObserveLatency(start time.Time) {
	c.latency.UpdateSince(start)
}

// DeliveredTotal returns the number of delivered records.
func (c *Counters) DeliveredTotal() int64 {
	return c.delivered.Count()
}

// FailedTotal returns the number of failed records.
func (c *Counters) FailedTotal() int64 {
	return c.failed.Count()
}

// Snapshot returns the current totals.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Delivered: c.delivered.Count(),
		Failed:    c.failed.Count(),
		Splits:    c.splits.Count(),
		Retries:   c.retries.Count(),
		InFlight:  c.inflight.Value(),
	}
}

// Registry returns the registry the counters are registered in.
func (c *Counters) Registry() gometrics.Registry {
	return c.registry
}
