package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randomizedcoder/go-edge-shell/internal/process"
	"github.com/randomizedcoder/go-edge-shell/internal/stats"
	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

// ErrNotStarted is returned by operations that need a running launch.
var ErrNotStarted = errors.New("launch not started")

// Launcher starts worker processes.
type Launcher interface {
	Launch(ctx context.Context, runner process.Runner) (*process.Handle, error)
}

// Callbacks contains optional callback functions for launch events.
type Callbacks struct {
	// OnStateChange is called when the launch state changes.
	OnStateChange func(launchID string, oldState, newState State)

	// OnStart is called when the worker process starts.
	OnStart func(launchID string, pid int)

	// OnExit is called once the worker has exited and forwarding is over,
	// whether the stream ended on its own or Stop cancelled it.
	OnExit func(launchID string, status process.ExitStatus, uptime time.Duration)

	// OnPublish is called after every UI publish attempt.
	OnPublish func(kind process.EventKind, err error)
}

// Config holds configuration for creating a new Supervisor.
type Config struct {
	Runner    process.Runner
	Launcher  Launcher
	Emitter   window.Emitter
	Logger    *slog.Logger
	Callbacks Callbacks
}

// Supervisor manages a single launch of a worker: spawn, forward, stop.
// There is no restart; a new launch needs a new Supervisor.
type Supervisor struct {
	runner    process.Runner
	launcher  Launcher
	emitter   window.Emitter
	logger    *slog.Logger
	callbacks Callbacks

	state   State
	stateMu sync.RWMutex

	mu        sync.Mutex
	handle    *process.Handle
	forwarder *Forwarder
	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
}

// New creates a new Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		runner:    cfg.Runner,
		launcher:  cfg.Launcher,
		emitter:   cfg.Emitter,
		logger:    logger,
		callbacks: cfg.Callbacks,
		state:     StateCreated,
		done:      make(chan struct{}),
	}
}

// Start spawns the worker and starts forwarding in a background goroutine.
// It returns once the process has started; spawn failures are returned and
// leave the supervisor in StateFailed.
func (s *Supervisor) Start(ctx context.Context) error {
	s.setState("", StateStarting)

	handle, err := s.launcher.Launch(ctx, s.runner)
	if err != nil {
		s.setState("", StateFailed)
		close(s.done)
		return err
	}

	fwd := NewForwarder(ForwarderConfig{
		Source:    handle,
		Emitter:   s.emitter,
		Logger:    s.logger,
		OnPublish: s.callbacks.OnPublish,
	})

	fwdCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.handle = handle
	s.forwarder = fwd
	s.cancel = cancel
	s.mu.Unlock()

	s.setState(handle.ID(), StateRunning)
	if s.callbacks.OnStart != nil {
		s.callbacks.OnStart(handle.ID(), handle.Pid())
	}

	go s.forward(fwdCtx, handle, fwd)
	return nil
}

func (s *Supervisor) forward(ctx context.Context, handle *process.Handle, fwd *Forwarder) {
	defer close(s.done)

	err := fwd.Run(ctx)

	s.mu.Lock()
	s.runErr = err
	s.mu.Unlock()

	final := StateExited
	if err != nil {
		// Cancelled: nobody reads the stream from here on.
		handle.Release()
		final = StateStopped
	}

	<-handle.Done()
	status := handle.Status()
	summary := fwd.Stats().Summary()
	s.logger.Info("forwarder_finished",
		"launch_id", handle.ID(),
		"exit_code", status.ExitCode(),
		"cancelled", err != nil,
		"stdout_chunks", summary.StdoutChunks,
		"stderr_chunks", summary.StderrChunks,
		"published", summary.Published,
		"publish_failures", summary.PublishFailures,
		"recent_lines", fwd.Recorder().RecentLines(5),
	)

	s.setState(handle.ID(), final)
	if s.callbacks.OnExit != nil {
		s.callbacks.OnExit(handle.ID(), status, handle.Uptime())
	}
}

// Stop cancels forwarding and stops the worker if it is still running. A
// worker that has already exited is not signalled again.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	handle := s.handle
	cancel := s.cancel
	s.mu.Unlock()

	if handle == nil {
		return ErrNotStarted
	}

	cancel()
	handle.Release()
	return handle.Stop(ctx)
}

// Done is closed when forwarding has finished, or immediately after a
// failed Start.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until forwarding has finished or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.runErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state of the supervisor.
func (s *Supervisor) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// setState updates the state and calls the callback if registered.
func (s *Supervisor) setState(launchID string, newState State) {
	s.stateMu.Lock()
	oldState := s.state
	s.state = newState
	s.stateMu.Unlock()

	if s.callbacks.OnStateChange != nil && oldState != newState {
		s.callbacks.OnStateChange(launchID, oldState, newState)
	}
}

// LaunchID returns the launch identifier, or "" before the worker started.
func (s *Supervisor) LaunchID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ""
	}
	return s.handle.ID()
}

// Pid returns the worker's process id, or 0 before it started.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.Pid()
}

// Stats returns the forwarding statistics, or nil before the worker started.
func (s *Supervisor) Stats() *stats.ForwardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forwarder == nil {
		return nil
	}
	return s.forwarder.Stats()
}
