// Package preflight provides startup validation checks.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/randomizedcoder/go-edge-shell/internal/process"
)

// minFileDescriptors covers the shell, the metrics server, the worker's
// pipes and the worker's own needs.
const minFileDescriptors = 256

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options names what the edge runtime needs on disk.
type Options struct {
	SidecarPath  string
	ResourceDir  string // resolved resource directory, e.g. <app>/functions
	MainService  string
	EventWorker  string
	ProbeVersion bool // also run "<sidecar> --version"
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// add appends a check and folds it into the overall result.
func (r *Result) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Passed {
		r.Passed = false
	}
}

// RunAll executes all preflight checks.
func RunAll(ctx context.Context, opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 5),
		Passed: true,
	}

	result.add(checkFileDescriptors(minFileDescriptors))
	result.add(checkSidecar(opts.SidecarPath))
	if opts.ProbeVersion {
		result.add(checkSidecarVersion(ctx, opts.SidecarPath))
	}
	result.add(checkDir("resource_dir", opts.ResourceDir))
	result.add(checkDir("main_service", filepath.Join(opts.ResourceDir, opts.MainService)))
	result.add(checkDir("event_worker", filepath.Join(opts.ResourceDir, opts.EventWorker)))

	return result
}

// checkSidecar verifies the edge runtime binary exists and is executable.
func checkSidecar(path string) Check {
	if path == "" {
		return Check{Name: "sidecar", Passed: false, Message: "no sidecar path configured"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "sidecar",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}
	if info.IsDir() {
		return Check{
			Name:    "sidecar",
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return Check{
			Name:    "sidecar",
			Passed:  false,
			Message: fmt.Sprintf("%s is not executable (mode %s)", path, info.Mode().Perm()),
		}
	}

	return Check{
		Name:    "sidecar",
		Passed:  true,
		Message: fmt.Sprintf("found at %s", path),
	}
}

// checkSidecarVersion runs the sidecar once. Runtimes that do not understand
// --version only produce a warning.
func checkSidecarVersion(ctx context.Context, path string) Check {
	version, err := process.ProbeVersion(ctx, path)
	if err != nil {
		return Check{
			Name:    "sidecar_version",
			Passed:  true,
			Warning: true,
			Message: err.Error(),
		}
	}
	return Check{
		Name:    "sidecar_version",
		Passed:  true,
		Message: version,
	}
}

// checkDir verifies path is an existing directory.
func checkDir(name, path string) Check {
	if path == "" {
		return Check{Name: name, Passed: false, Message: "not configured"}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("%s does not exist", path)}
	case err != nil:
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("%s: %v", path, err)}
	case !info.IsDir():
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("%s is not a directory", path)}
	}
	return Check{Name: name, Passed: true, Message: path}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// Failed returns the names of the checks that did not pass.
func (r *Result) Failed() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// Err returns nil when every check passed.
func (r *Result) Err() error {
	if r.Passed {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(r.Failed(), ", "))
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case "sidecar":
		return "install edge-runtime next to edge-shell, or pass --sidecar-path"
	case "resource_dir":
		return "pass --resource-dir pointing at the directory that holds functions/"
	case "main_service", "event_worker":
		return "create the missing subdirectory under the resource directory"
	default:
		return "see documentation"
	}
}
