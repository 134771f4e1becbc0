// Package process launches the edge runtime sidecar and turns its output into
// an ordered stream of events.
package process

import (
	"context"
	"os/exec"
)

// Runner creates executable commands for a launch.
// This interface allows the launcher to be process-agnostic.
type Runner interface {
	// BuildCommand returns a ready-to-start command for the given launch.
	// The command should NOT be started yet.
	BuildCommand(ctx context.Context, launchID string) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}
