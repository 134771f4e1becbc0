//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// Stop terminates the worker's process group: SIGTERM first, SIGKILL after
// the stop timeout. It returns nil without signalling when the worker has
// already exited.
func (h *Handle) Stop(ctx context.Context) error {
	if h.Exited() {
		return nil
	}

	if err := syscall.Kill(-h.cmd.Process.Pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %s: %w", h.name, err)
	}

	select {
	case <-h.waitDone:
		return nil
	case <-time.After(h.stopTimeout):
	case <-ctx.Done():
		return ctx.Err()
	}

	h.logger.Warn("force_killing_process",
		"launch_id", h.id,
		"pid", h.cmd.Process.Pid,
	)
	if err := syscall.Kill(-h.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %s: %w", h.name, err)
	}
	select {
	case <-h.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
