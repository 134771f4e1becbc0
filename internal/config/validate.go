package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Resource and role directories are relative names
	for _, f := range []struct {
		field, value string
	}{
		{"resource_name", cfg.ResourceName},
		{"main_service", cfg.MainService},
		{"event_worker", cfg.EventWorker},
	} {
		if err := validateSubdir(f.value); err != nil {
			errs = append(errs, ValidationError{Field: f.field, Message: err.Error()})
		}
	}

	// Need something to run
	if cfg.SidecarPath == "" && cfg.SidecarName == "" {
		errs = append(errs, ValidationError{
			Field:   "sidecar_name",
			Message: "either sidecar_name or sidecar_path is required",
		})
	}

	if cfg.BaseDirEnv == "" || strings.ContainsAny(cfg.BaseDirEnv, "= \t") {
		errs = append(errs, ValidationError{
			Field:   "base_dir_env",
			Message: fmt.Sprintf("must be a non-empty variable name (got %q)", cfg.BaseDirEnv),
		})
	}

	if cfg.StopTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "stop_timeout",
			Message: "must be positive",
		})
	}

	if cfg.EventBuffer < 1 {
		errs = append(errs, ValidationError{
			Field:   "event_buffer",
			Message: "must be at least 1",
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: err.Error(),
			})
		}
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", cfg.LogLevel),
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateSubdir checks that name is a single relative path element.
func validateSubdir(name string) error {
	if name == "" {
		return errors.New("must not be empty")
	}
	if filepath.IsAbs(name) {
		return errors.New("must be relative")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("must be a single directory name (got %q)", name)
	}
	return nil
}

// ApplyCheckMode modifies config for preflight-only runs: no UI, verbose
// text logging on the console.
func ApplyCheckMode(cfg *Config) {
	cfg.TUI = false
	cfg.Autostart = false
	cfg.Verbose = true
	cfg.LogFormat = "text"
}
