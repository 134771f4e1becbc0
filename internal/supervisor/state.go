// Package supervisor runs a single edge runtime launch: it starts the worker
// through the launcher, forwards its output to the UI and tracks the launch
// lifecycle.
package supervisor

// State represents the current state of a launch.
type State int

const (
	// StateCreated is the initial state before the worker has been spawned.
	StateCreated State = iota

	// StateStarting indicates the worker process is being spawned.
	StateStarting

	// StateRunning indicates the worker is running and being forwarded.
	StateRunning

	// StateExited indicates the worker's stream has ended.
	StateExited

	// StateFailed indicates the worker could not be spawned.
	StateFailed

	// StateStopped indicates forwarding was cancelled by Stop.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsActive returns true while a worker is being spawned or forwarded.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning
}

// IsTerminal returns true once the launch is over.
func (s State) IsTerminal() bool {
	return s == StateExited || s == StateFailed || s == StateStopped
}
