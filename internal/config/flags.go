package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags binds the configuration fields to fs. Defaults are taken
// from the current values in cfg.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	// Edge runtime
	fs.StringVar(&cfg.ResourceDir, "resource-dir", cfg.ResourceDir, "Application resource directory (default: directory of the executable)")
	fs.StringVar(&cfg.ResourceName, "resource-name", cfg.ResourceName, "Resource subdirectory holding the edge functions")
	fs.StringVar(&cfg.SidecarName, "sidecar", cfg.SidecarName, "Edge runtime sidecar name, resolved next to the executable")
	fs.StringVar(&cfg.SidecarPath, "sidecar-path", cfg.SidecarPath, "Explicit path to the edge runtime binary (overrides --sidecar)")
	fs.StringVar(&cfg.MainService, "main-service", cfg.MainService, "Main service subdirectory")
	fs.StringVar(&cfg.EventWorker, "event-worker", cfg.EventWorker, "Event worker subdirectory")
	fs.StringVar(&cfg.BaseDirEnv, "base-dir-env", cfg.BaseDirEnv, "Environment variable carrying the resource directory")
	fs.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "Grace period between SIGTERM and SIGKILL")
	fs.IntVar(&cfg.EventBuffer, "event-buffer", cfg.EventBuffer, "Worker event stream buffer size")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Metrics and command API address (empty to disable)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging (debug level)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or text")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to this file (logs are discarded while the TUI runs otherwise)")

	// Shell
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "Run the terminal UI (--tui=false for headless)")
	fs.BoolVar(&cfg.Autostart, "autostart", cfg.Autostart, "Start the edge runtime immediately")

	// Diagnostics
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	fs.StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "YAML configuration file (flags take precedence)")
}
