// Package commands implements the operations the UI and the command API
// invoke: starting and stopping the edge runtime, greeting and opening the
// main window.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randomizedcoder/go-edge-shell/internal/process"
	"github.com/randomizedcoder/go-edge-shell/internal/stats"
	"github.com/randomizedcoder/go-edge-shell/internal/supervisor"
	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

// OK is the result of a successful start.
const OK = "OK"

// Observer receives launch and forwarding events, typically for metrics.
type Observer interface {
	LaunchStarted()
	SpawnFailed()
	RecordPublish(kind string, err error)
	RecordExit(exitCode int, uptime time.Duration)
	RecordForwardStats(s stats.Summary)
}

// Config holds configuration for creating an App.
type Config struct {
	// ResourceDir is the application resource directory. Empty means the
	// directory of the running executable.
	ResourceDir  string
	ResourceName string

	// SidecarPath is the edge runtime binary. Empty means SidecarName next
	// to the executable.
	SidecarPath string
	SidecarName string

	MainService string
	EventWorker string
	BaseDirEnv  string

	Launcher supervisor.Launcher
	Logger   *slog.Logger
	Observer Observer

	// OnStateChange is called on every launch state transition.
	OnStateChange func(launchID string, oldState, newState supervisor.State)
}

// Status is a snapshot of the current launch.
type Status struct {
	State    string         `json:"state"`
	LaunchID string         `json:"launch_id,omitempty"`
	Pid      int            `json:"pid,omitempty"`
	Stats    *stats.Summary `json:"stats,omitempty"`
}

// App owns at most one edge runtime launch at a time.
type App struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	active *supervisor.Supervisor
}

// NewApp creates an App. Defaults are filled in for empty names.
func NewApp(cfg Config) *App {
	if cfg.ResourceName == "" {
		cfg.ResourceName = process.DefaultResourceName
	}
	if cfg.SidecarName == "" {
		cfg.SidecarName = process.DefaultSidecarName
	}
	if cfg.MainService == "" {
		cfg.MainService = process.DefaultMainService
	}
	if cfg.EventWorker == "" {
		cfg.EventWorker = process.DefaultEventWorker
	}
	if cfg.BaseDirEnv == "" {
		cfg.BaseDirEnv = process.BaseDirEnv
	}
	if cfg.Launcher == nil {
		cfg.Launcher = process.NewLauncher(process.LauncherConfig{Logger: cfg.Logger})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// ResourcePath resolves the edge functions directory.
func (a *App) ResourcePath() (string, error) {
	base := a.cfg.ResourceDir
	if base == "" {
		dir, err := process.ExecutableDir()
		if err != nil {
			return "", &process.ResourceResolutionError{Path: a.cfg.ResourceName, Err: err}
		}
		base = dir
	}
	return process.ResolveResource(base, a.cfg.ResourceName)
}

// SidecarPath returns the edge runtime binary that StartEdgeRuntime runs.
func (a *App) SidecarPath() (string, error) {
	if a.cfg.SidecarPath != "" {
		return a.cfg.SidecarPath, nil
	}
	dir, err := process.ExecutableDir()
	if err != nil {
		return "", &process.SpawnError{Program: a.cfg.SidecarName, Err: err}
	}
	return process.SidecarPath(dir, a.cfg.SidecarName), nil
}

// WorkerConfig builds the edge runtime's command line for resourceDir.
func (a *App) WorkerConfig(program, resourceDir string) process.WorkerConfig {
	return process.NewWorkerConfig(program,
		process.EdgeRuntimeArgs(resourceDir, a.cfg.MainService, a.cfg.EventWorker),
		map[string]string{a.cfg.BaseDirEnv: resourceDir},
	)
}

// Runner resolves the resource directory and sidecar and returns the runner
// for the edge runtime.
func (a *App) Runner() (*process.EdgeRuntimeRunner, error) {
	resourceDir, err := a.ResourcePath()
	if err != nil {
		return nil, err
	}
	program, err := a.SidecarPath()
	if err != nil {
		return nil, err
	}
	return process.NewEdgeRuntimeRunner(a.WorkerConfig(program, resourceDir)), nil
}

// StartEdgeRuntime launches the edge runtime and forwards its output to
// emitter as "message" events from a background goroutine. It returns "OK"
// as soon as the process has started; the process outlives ctx.
//
// Failures are returned and also published to emitter as an "error" event.
// A second start while a worker is active fails with ErrAlreadyRunning.
func (a *App) StartEdgeRuntime(ctx context.Context, emitter window.Emitter) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil && a.active.State().IsActive() {
		return "", a.fail(emitter, ErrAlreadyRunning)
	}

	runner, err := a.Runner()
	if err != nil {
		if errors.Is(err, ErrSpawn) && a.cfg.Observer != nil {
			a.cfg.Observer.SpawnFailed()
		}
		return "", a.fail(emitter, err)
	}

	a.logger.Info("edge_runtime_starting",
		"main_service", runner.Config().Args()[2],
		"command", runner.CommandString(),
	)

	var sup *supervisor.Supervisor
	sup = supervisor.New(supervisor.Config{
		Runner:   runner,
		Launcher: a.cfg.Launcher,
		Emitter:  emitter,
		Logger:   a.logger,
		Callbacks: supervisor.Callbacks{
			OnStateChange: a.cfg.OnStateChange,
			OnStart: func(launchID string, pid int) {
				a.logger.Info("edge_runtime_started", "launch_id", launchID, "pid", pid)
				if a.cfg.Observer != nil {
					a.cfg.Observer.LaunchStarted()
				}
			},
			OnPublish: func(kind process.EventKind, err error) {
				if a.cfg.Observer != nil {
					a.cfg.Observer.RecordPublish(kind.String(), err)
				}
			},
			OnExit: func(launchID string, status process.ExitStatus, uptime time.Duration) {
				a.logger.Info("edge_runtime_exited",
					"launch_id", launchID,
					"status", status.String(),
					"uptime", uptime.String(),
				)
				if a.cfg.Observer != nil {
					a.cfg.Observer.RecordExit(status.ExitCode(), uptime)
					if st := sup.Stats(); st != nil {
						a.cfg.Observer.RecordForwardStats(st.Summary())
					}
				}
			},
		},
	})

	if err := sup.Start(ctx); err != nil {
		if a.cfg.Observer != nil {
			a.cfg.Observer.SpawnFailed()
		}
		return "", a.fail(emitter, err)
	}

	a.active = sup
	return OK, nil
}

// StopEdgeRuntime stops forwarding and terminates the worker if it is still
// running. It fails with ErrNotRunning when nothing was started.
func (a *App) StopEdgeRuntime(ctx context.Context) error {
	a.mu.Lock()
	sup := a.active
	a.mu.Unlock()

	if sup == nil {
		return ErrNotRunning
	}
	if err := sup.Stop(ctx); err != nil {
		return err
	}
	select {
	case <-sup.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	a.logger.Info("edge_runtime_stopped", "launch_id", sup.LaunchID())
	return nil
}

// Wait blocks until the active launch has finished or ctx is done. It
// returns immediately when nothing was started.
func (a *App) Wait(ctx context.Context) error {
	a.mu.Lock()
	sup := a.active
	a.mu.Unlock()

	if sup == nil {
		return nil
	}
	err := sup.Wait(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		// Stopped on request.
		return nil
	}
	return err
}

// Status returns a snapshot of the current launch.
func (a *App) Status() Status {
	a.mu.Lock()
	sup := a.active
	a.mu.Unlock()

	if sup == nil {
		return Status{State: supervisor.StateCreated.String()}
	}
	st := Status{
		State:    sup.State().String(),
		LaunchID: sup.LaunchID(),
		Pid:      sup.Pid(),
	}
	if fs := sup.Stats(); fs != nil {
		summary := fs.Summary()
		st.Stats = &summary
	}
	return st
}

// Running reports whether a worker is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil && a.active.State().IsActive()
}

// fail logs err and surfaces it to the UI as an "error" event.
func (a *App) fail(emitter window.Emitter, err error) error {
	a.logger.Error("edge_runtime_start_failed", "error", err)
	if emitter != nil {
		if emitErr := emitter.Emit(window.EventError, err.Error()); emitErr != nil {
			a.logger.Warn("publish_failed", "event", window.EventError, "error", emitErr)
		}
	}
	return err
}
