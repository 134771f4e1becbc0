package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

var (
	// ErrResourceResolution reports that the resource directory could not be
	// located. There is no fallback.
	ErrResourceResolution = errors.New("resource resolution failed")

	// ErrSpawn reports that the worker process could not be started.
	ErrSpawn = errors.New("spawn failed")
)

// ResourceResolutionError carries the path that failed to resolve.
type ResourceResolutionError struct {
	Path string
	Err  error
}

func (e *ResourceResolutionError) Error() string {
	return fmt.Sprintf("resolve resource %s: %v", e.Path, e.Err)
}

func (e *ResourceResolutionError) Unwrap() []error {
	return []error{ErrResourceResolution, e.Err}
}

// SpawnError carries the program that failed to start.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawn, e.Err}
}

// ResolveResource returns the absolute path of name under baseDir. The
// result must be an existing directory.
func ResolveResource(baseDir, name string) (string, error) {
	path := filepath.Join(baseDir, name)
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &ResourceResolutionError{Path: path, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &ResourceResolutionError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return "", &ResourceResolutionError{Path: abs, Err: errors.New("not a directory")}
	}
	return abs, nil
}

// ExecutableDir returns the directory holding the running executable.
// Sidecars and bundled resources are installed next to it.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// SidecarPath returns the path of the named sidecar binary inside dir,
// adding the platform executable suffix.
func SidecarPath(dir, name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) != ".exe" {
		name += ".exe"
	}
	return filepath.Join(dir, name)
}
