package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultSidecarName is the executable name of the edge runtime.
	DefaultSidecarName = "edge-runtime"

	// DefaultResourceName is the resource subdirectory holding the functions.
	DefaultResourceName = "functions"

	// DefaultMainService and DefaultEventWorker are the role subdirectories
	// of the resource directory.
	DefaultMainService = "main"
	DefaultEventWorker = "event"

	// BaseDirEnv tells the child process where its resources live.
	BaseDirEnv = "SERVICE_BASE_DIR"
)

// WorkerConfig describes one worker process: the executable, its ordered
// arguments and the extra environment. It is immutable after construction.
type WorkerConfig struct {
	program string
	args    []string
	env     map[string]string
}

// NewWorkerConfig copies args and env into a new WorkerConfig.
func NewWorkerConfig(program string, args []string, env map[string]string) WorkerConfig {
	cfg := WorkerConfig{
		program: program,
		args:    append([]string(nil), args...),
		env:     make(map[string]string, len(env)),
	}
	for k, v := range env {
		cfg.env[k] = v
	}
	return cfg
}

// NewEdgeRuntimeConfig builds the edge runtime's command line for the given
// resource directory using the default role subdirectories.
func NewEdgeRuntimeConfig(program, resourceDir string) WorkerConfig {
	return NewWorkerConfig(program,
		EdgeRuntimeArgs(resourceDir, DefaultMainService, DefaultEventWorker),
		map[string]string{BaseDirEnv: resourceDir},
	)
}

// EdgeRuntimeArgs returns the argument list understood by the edge runtime:
//
//	start --main-service <dir>/<main> --event-worker <dir>/<event>
func EdgeRuntimeArgs(resourceDir, mainService, eventWorker string) []string {
	return []string{
		"start",
		"--main-service", filepath.Join(resourceDir, mainService),
		"--event-worker", filepath.Join(resourceDir, eventWorker),
	}
}

// Program returns the executable path.
func (c WorkerConfig) Program() string {
	return c.program
}

// Args returns a copy of the argument list.
func (c WorkerConfig) Args() []string {
	return append([]string(nil), c.args...)
}

// Env returns a copy of the extra environment.
func (c WorkerConfig) Env() map[string]string {
	dup := make(map[string]string, len(c.env))
	for k, v := range c.env {
		dup[k] = v
	}
	return dup
}

// Environ returns the parent environment followed by the configured
// overrides in KEY=VALUE form, sorted by key for stable output.
func (c WorkerConfig) Environ() []string {
	env := os.Environ()
	for _, k := range c.envKeys() {
		env = append(env, k+"="+c.env[k])
	}
	return env
}

func (c WorkerConfig) envKeys() []string {
	keys := make([]string, 0, len(c.env))
	for k := range c.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CommandString returns the command that would be executed (for debugging).
func (c WorkerConfig) CommandString() string {
	parts := make([]string, 0, len(c.env)+len(c.args)+1)
	for _, k := range c.envKeys() {
		parts = append(parts, k+"="+c.env[k])
	}
	parts = append(parts, c.program)
	parts = append(parts, c.args...)
	return strings.Join(parts, " ")
}

// EdgeRuntimeRunner implements Runner for a fixed WorkerConfig.
type EdgeRuntimeRunner struct {
	config WorkerConfig
}

// NewEdgeRuntimeRunner creates a runner for the given configuration.
func NewEdgeRuntimeRunner(cfg WorkerConfig) *EdgeRuntimeRunner {
	return &EdgeRuntimeRunner{config: cfg}
}

// Name returns "edge-runtime".
func (r *EdgeRuntimeRunner) Name() string {
	return DefaultSidecarName
}

// BuildCommand creates an exec.Cmd with the configured arguments and
// environment.
func (r *EdgeRuntimeRunner) BuildCommand(ctx context.Context, launchID string) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, r.config.Program(), r.config.Args()...)
	cmd.Env = r.config.Environ()
	return cmd, nil
}

// Config returns the worker configuration.
func (r *EdgeRuntimeRunner) Config() WorkerConfig {
	return r.config
}

// CommandString returns the command that would be executed (for debugging).
func (r *EdgeRuntimeRunner) CommandString() string {
	return r.config.CommandString()
}
