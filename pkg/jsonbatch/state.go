package jsonbatch

import "github.com/bft-labs/jsonbatch/internal/app"

// State represents the lifecycle state of a Sink.
type State int

const (
	// StateStopped is the initial state and the state after a graceful Stop.
	StateStopped State = iota
	// StateStarting means Start was called and plugins are initializing.
	StateStarting
	// StateRunning means the sink accepts records and delivers batches.
	StateRunning
	// StateStopping means Stop was called and outstanding deliveries are draining.
	StateStopping
	// StateCrashed means startup failed or the drain hit the shutdown timeout.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

// CanStart reports whether Start may be called in this state.
func (s State) CanStart() bool {
	return s == StateStopped || s == StateCrashed
}

// CanStop reports whether Stop may be called in this state.
func (s State) CanStop() bool {
	return s == StateStarting || s == StateRunning
}

// IsRunning reports whether the sink is fully started.
func (s State) IsRunning() bool {
	return s == StateRunning
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
