package commands

import (
	"errors"
	"fmt"

	"github.com/randomizedcoder/go-edge-shell/internal/process"
	"github.com/randomizedcoder/go-edge-shell/internal/supervisor"
)

// Error kinds returned by the commands. Match with errors.Is.
var (
	ErrResourceResolution = process.ErrResourceResolution
	ErrSpawn              = process.ErrSpawn
	ErrPublish            = supervisor.ErrPublish

	ErrWindowOperation = errors.New("window operation failed")
	ErrAlreadyRunning  = errors.New("edge runtime already running")
	ErrNotRunning      = errors.New("edge runtime not running")
)

// WindowOperationError reports a failed show, focus, create or dock call.
type WindowOperationError struct {
	Label string
	Op    string
	Err   error
}

func (e *WindowOperationError) Error() string {
	return fmt.Sprintf("window %q: %s: %v", e.Label, e.Op, e.Err)
}

func (e *WindowOperationError) Unwrap() []error {
	return []error{ErrWindowOperation, e.Err}
}
