package jsonbatch

import (
	"time"

	"github.com/bft-labs/jsonbatch/internal/app"
	"github.com/bft-labs/jsonbatch/internal/domain"
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DeliveredEvent is emitted when a batch got a 2xx response.
type DeliveredEvent struct {
	BatchID    string
	Records    int
	StatusCode int
	Duration   time.Duration
}

// SplitEvent is emitted when a failed batch is split into single records.
type SplitEvent struct {
	BatchID  string
	Records  int
	Children int
	Error    error
}

// RetryEvent is emitted when a failed batch is scheduled for a whole-batch retry.
type RetryEvent struct {
	BatchID string
	Records int
	Attempt int
	Error   error
}

// FailedEvent is emitted when a batch is dropped for good.
type FailedEvent struct {
	BatchID string
	Records int
	Error   error
}

// EventHandler receives notifications about sink operations.
// Embed BaseEventHandler to implement only the methods you need.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnDelivered(DeliveredEvent)
	OnSplit(SplitEvent)
	OnRetry(RetryEvent)
	OnFailed(FailedEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnDelivered(DeliveredEvent)     {}
func (BaseEventHandler) OnSplit(SplitEvent)             {}
func (BaseEventHandler) OnRetry(RetryEvent)             {}
func (BaseEventHandler) OnFailed(FailedEvent)           {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnDelivered(b domain.Batch, status int, took time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnDelivered(DeliveredEvent{
		BatchID:    b.ID,
		Records:    b.Size(),
		StatusCode: status,
		Duration:   took,
	})
}

func (e *eventEmitterWrapper) OnSplit(b domain.Batch, children int, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnSplit(SplitEvent{BatchID: b.ID, Records: b.Size(), Children: children, Error: err})
}

func (e *eventEmitterWrapper) OnRetry(b domain.Batch, attempt int, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnRetry(RetryEvent{BatchID: b.ID, Records: b.Size(), Attempt: attempt, Error: err})
}

func (e *eventEmitterWrapper) OnFailed(b domain.Batch, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnFailed(FailedEvent{BatchID: b.ID, Records: b.Size(), Error: err})
}
