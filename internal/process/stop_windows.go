//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Stop interrupts the worker and kills it after the stop timeout. Only the
// direct child is signalled. It returns nil when the worker has already
// exited.
func (h *Handle) Stop(ctx context.Context) error {
	if h.Exited() {
		return nil
	}
	_ = h.cmd.Process.Signal(os.Interrupt)

	select {
	case <-h.waitDone:
		return nil
	case <-time.After(h.stopTimeout):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %s: %w", h.name, err)
	}
	select {
	case <-h.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
