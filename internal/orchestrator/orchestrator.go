// Package orchestrator wires the shell together: the edge runtime commands,
// the terminal UI, metrics and the command API.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/randomizedcoder/go-edge-shell/internal/commands"
	"github.com/randomizedcoder/go-edge-shell/internal/config"
	"github.com/randomizedcoder/go-edge-shell/internal/metrics"
	"github.com/randomizedcoder/go-edge-shell/internal/preflight"
	"github.com/randomizedcoder/go-edge-shell/internal/process"
	"github.com/randomizedcoder/go-edge-shell/internal/supervisor"
	"github.com/randomizedcoder/go-edge-shell/internal/tui"
	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

const shutdownTimeout = 10 * time.Second

// Options holds what the orchestrator needs besides the configuration.
type Options struct {
	Version string

	// Out receives preflight results, headless UI events and the exit
	// summary. Defaults to os.Stdout.
	Out io.Writer

	// ProgramOptions are passed to the Bubble Tea program.
	ProgramOptions []tea.ProgramOption
}

// Orchestrator coordinates all components for one shell session.
type Orchestrator struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	out     io.Writer

	app           *commands.App
	shell         *tui.Shell
	console       *consoleEmitter
	registry      *prometheus.Registry
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	programOpts   []tea.ProgramOption

	startTime time.Time
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	sidecar := cfg.SidecarPath
	if sidecar == "" {
		sidecar = cfg.SidecarName
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version: opts.Version,
		Sidecar: filepath.Base(sidecar),
	}, registry)

	o := &Orchestrator{
		config:      cfg,
		logger:      logger,
		version:     opts.Version,
		out:         out,
		shell:       tui.NewShell(),
		console:     newConsoleEmitter(out),
		registry:    registry,
		metrics:     collector,
		programOpts: opts.ProgramOptions,
	}

	launcher := process.NewLauncher(process.LauncherConfig{
		Logger:      logger,
		BufferSize:  cfg.EventBuffer,
		StopTimeout: cfg.StopTimeout,
	})

	o.app = commands.NewApp(commands.Config{
		ResourceDir:   cfg.ResourceDir,
		ResourceName:  cfg.ResourceName,
		SidecarPath:   cfg.SidecarPath,
		SidecarName:   cfg.SidecarName,
		MainService:   cfg.MainService,
		EventWorker:   cfg.EventWorker,
		BaseDirEnv:    cfg.BaseDirEnv,
		Launcher:      launcher,
		Logger:        logger,
		Observer:      collector,
		OnStateChange: o.onStateChange,
	})

	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(metrics.ServerConfig{
			Addr:       cfg.MetricsAddr,
			Logger:     logger,
			Controller: o,
			Gatherer:   registry,
		})
	}

	return o
}

// Run executes the shell session. It blocks until the UI quits, ctx is
// cancelled, or, headless with autostart, the edge runtime exits.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	if !o.config.SkipPreflight {
		result := preflight.RunAll(ctx, o.PreflightOptions())
		preflight.PrintResults(o.out, result)
		if err := result.Err(); err != nil {
			return fmt.Errorf("%w (use --skip-preflight to override)", err)
		}
	}

	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		o.logger.Info("api_listening", "addr", o.metricsServer.Addr())
	}

	var err error
	if o.config.TUI {
		err = o.runTUI(ctx)
	} else {
		err = o.runHeadless(ctx)
	}

	o.shutdown()
	o.printExitSummary()

	return err
}

func (o *Orchestrator) runTUI(ctx context.Context) error {
	go func() {
		select {
		case <-o.shell.Started():
		case <-ctx.Done():
			return
		}

		cfg := window.MainConfig()
		cfg.Visible = true
		if _, err := o.shell.CreateWindow(cfg); err != nil {
			o.logger.Warn("main_window_create_failed", "error", err)
			return
		}
		if o.config.Autostart {
			if _, err := o.StartEdgeRuntime(ctx); err != nil {
				o.logger.Warn("autostart_failed", "error", err)
			}
		}
	}()

	model := tui.New(tui.Config{
		Actions:     o,
		MetricsAddr: o.APIAddr(),
	})
	return o.shell.Run(ctx, model, o.programOpts...)
}

func (o *Orchestrator) runHeadless(ctx context.Context) error {
	if !o.config.Autostart {
		<-ctx.Done()
		o.logger.Info("context_cancelled")
		return nil
	}

	if _, err := o.StartEdgeRuntime(ctx); err != nil {
		return err
	}
	if err := o.app.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ctx.Err() != nil {
		o.logger.Info("context_cancelled")
	}
	return nil
}

// shutdown stops the edge runtime and the API server.
func (o *Orchestrator) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if o.app.Running() {
		if err := o.app.StopEdgeRuntime(shutdownCtx); err != nil {
			o.logger.Warn("shutdown_incomplete", "error", err)
		}
	}

	if o.metricsServer != nil {
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
	}
}

// PreflightOptions describes the files the edge runtime needs.
func (o *Orchestrator) PreflightOptions() preflight.Options {
	opts := preflight.Options{
		MainService: o.config.MainService,
		EventWorker: o.config.EventWorker,
	}
	if path, err := o.app.SidecarPath(); err == nil {
		opts.SidecarPath = path
	}

	dir, err := o.app.ResourcePath()
	var rre *process.ResourceResolutionError
	switch {
	case err == nil:
		opts.ResourceDir = dir
	case errors.As(err, &rre):
		opts.ResourceDir = rre.Path
	}
	return opts
}

// =============================================================================
// Commands (shared by the TUI and the HTTP API)
// =============================================================================

// StartEdgeRuntime launches the edge runtime, forwarding its output to the
// main window, to every window when main does not exist, or to the console
// when running headless.
func (o *Orchestrator) StartEdgeRuntime(ctx context.Context) (string, error) {
	return o.app.StartEdgeRuntime(ctx, o.emitter())
}

// StopEdgeRuntime stops the active edge runtime.
func (o *Orchestrator) StopEdgeRuntime(ctx context.Context) error {
	return o.app.StopEdgeRuntime(ctx)
}

// Greet returns the greeting for name.
func (o *Orchestrator) Greet(name string) string {
	return commands.Greet(name)
}

// OpenMainWindow shows and focuses the main window, creating it if needed.
// Headless sessions have no windows and fail with window.ErrUIClosed.
func (o *Orchestrator) OpenMainWindow() error {
	return commands.OpenMainWindow(o.shell, o.shell)
}

// Status returns a snapshot of the current launch.
func (o *Orchestrator) Status() commands.Status {
	return o.app.Status()
}

func (o *Orchestrator) emitter() window.Emitter {
	if !o.config.TUI {
		return o.console
	}
	if w, ok := o.shell.Window(window.MainLabel); ok {
		return w
	}
	return o.shell
}

// =============================================================================
// Callback handlers
// =============================================================================

func (o *Orchestrator) onStateChange(launchID string, oldState, newState supervisor.State) {
	if o.config.Verbose {
		o.logger.Debug("launch_state_changed",
			"launch_id", launchID,
			"from", oldState.String(),
			"to", newState.String(),
		)
	}
}

// =============================================================================
// Accessors
// =============================================================================

// APIAddr returns the address of the metrics and command API, or "".
func (o *Orchestrator) APIAddr() string {
	if o.metricsServer == nil {
		return ""
	}
	return o.metricsServer.Addr()
}

// App returns the command layer.
func (o *Orchestrator) App() *commands.App {
	return o.app
}

// Shell returns the window layer.
func (o *Orchestrator) Shell() *tui.Shell {
	return o.shell
}

// Metrics returns the metrics collector.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Registry returns the Prometheus registry served on /metrics.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}

// =============================================================================
// Exit summary
// =============================================================================

// printExitSummary prints a summary of the session.
func (o *Orchestrator) printExitSummary() {
	summary := o.metrics.GenerateSummary()
	w := o.out

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                     edge-shell Exit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Session Duration:       %s\n", formatDuration(summary.Duration))
	fmt.Fprintf(w, "Launches:               %d\n", summary.TotalLaunches)
	fmt.Fprintf(w, "Spawn Failures:         %d\n", summary.SpawnFailures)
	fmt.Fprintln(w)

	if summary.UptimeP50 > 0 || summary.UptimeP95 > 0 {
		fmt.Fprintln(w, "Uptime Distribution:")
		fmt.Fprintf(w, "  P50 (median):         %s\n", formatDuration(summary.UptimeP50))
		fmt.Fprintf(w, "  P95:                  %s\n", formatDuration(summary.UptimeP95))
		fmt.Fprintf(w, "  P99:                  %s\n", formatDuration(summary.UptimeP99))
		fmt.Fprintln(w)
	}

	if len(summary.ExitCodes) > 0 {
		fmt.Fprintln(w, "Exit Codes:")
		for _, code := range slices.Sorted(maps.Keys(summary.ExitCodes)) {
			fmt.Fprintf(w, "  %3d %-16s %d\n", code, exitCodeLabel(code), summary.ExitCodes[code])
		}
		fmt.Fprintln(w)
	}

	if addr := o.APIAddr(); addr != "" {
		fmt.Fprintf(w, "Metrics endpoint was: http://%s/metrics\n", addr)
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case -1:
		return "(unknown)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}
