// Package config provides configuration management for edge-shell.
package config

import "time"

// Config holds all configuration options for the shell.
type Config struct {
	// Edge runtime
	ResourceDir  string        `json:"resource_dir" yaml:"resource_dir"` // "" = next to the executable
	ResourceName string        `json:"resource_name" yaml:"resource_name"`
	SidecarName  string        `json:"sidecar_name" yaml:"sidecar_name"`
	SidecarPath  string        `json:"sidecar_path" yaml:"sidecar_path"` // overrides SidecarName
	MainService  string        `json:"main_service" yaml:"main_service"`
	EventWorker  string        `json:"event_worker" yaml:"event_worker"`
	BaseDirEnv   string        `json:"base_dir_env" yaml:"base_dir_env"`
	StopTimeout  time.Duration `json:"stop_timeout" yaml:"stop_timeout"`
	EventBuffer  int           `json:"event_buffer" yaml:"event_buffer"`

	// Observability
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"` // "" = disabled
	Verbose     bool   `json:"verbose" yaml:"verbose"`
	LogFormat   string `json:"log_format" yaml:"log_format"` // json, text
	LogLevel    string `json:"log_level" yaml:"log_level"`
	LogFile     string `json:"log_file" yaml:"log_file"`

	// Shell
	TUI       bool `json:"tui" yaml:"tui"`
	Autostart bool `json:"autostart" yaml:"autostart"`

	// Diagnostic modes
	SkipPreflight bool `json:"skip_preflight" yaml:"skip_preflight"`

	// ConfigFile is the YAML file the values were overlaid from, if any.
	ConfigFile string `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Edge runtime
		ResourceName: "functions",
		SidecarName:  "edge-runtime",
		MainService:  "main",
		EventWorker:  "event",
		BaseDirEnv:   "SERVICE_BASE_DIR",
		StopTimeout:  2 * time.Second,
		EventBuffer:  64,

		// Observability
		MetricsAddr: "127.0.0.1:17092",
		Verbose:     false,
		LogFormat:   "json",
		LogLevel:    "info",

		// Shell
		TUI: true,
	}
}
