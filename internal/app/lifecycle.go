package app

import (
	"context"
	"sync"

	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

// State represents the lifecycle state of a sink.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// transitions lists the states reachable from each state. The error is
// returned for any other target.
var transitions = map[State]struct {
	to  []State
	err error
}{
	StateStopped:  {[]State{StateStarting}, domain.ErrNotRunning},
	StateStarting: {[]State{StateRunning, StateStopping, StateCrashed}, domain.ErrAlreadyRunning},
	StateRunning:  {[]State{StateStopping, StateCrashed}, domain.ErrAlreadyRunning},
	StateStopping: {[]State{StateStopped, StateCrashed}, domain.ErrAlreadyRunning},
	StateCrashed:  {[]State{StateStarting}, domain.ErrNotRunning},
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle guards the state machine of a sink and tracks its background
// workers so shutdown can wait for them.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	workers sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateStopped. The emitter may be nil.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:   StateStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next, or returns the error registered for the
// current state if the move is not allowed.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	rule, ok := transitions[prev]
	if !ok || !containsState(rule.to, next) {
		l.mu.Unlock()
		if !ok {
			return domain.ErrNotRunning
		}
		return rule.err
	}
	l.state = next
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

func containsState(states []State, s State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanStart reports whether Start may be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop reports whether Stop may be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// Accepting reports whether records may be handed to the sink.
func (l *Lifecycle) Accepting() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// SetCancel stores the function that ends the run context.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel ends the run context, if one was set.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker registers a background goroutine.
func (l *Lifecycle) AddWorker() {
	l.workers.Add(1)
}

// WorkerDone marks a background goroutine as finished.
func (l *Lifecycle) WorkerDone() {
	l.workers.Done()
}

// Wait blocks until every worker finished or ctx is done, in which case it
// returns domain.ErrShutdownTimeout.
func (l *Lifecycle) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		l.logger.Warn("workers still running at shutdown deadline")
		return domain.ErrShutdownTimeout
	}
}
