package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// EventKind tags a StreamEvent.
type EventKind int

const (
	// EventStdout carries one line of standard output.
	EventStdout EventKind = iota

	// EventStderr carries one line of standard error.
	EventStderr

	// EventTerminated is the last event of a stream and carries the exit status.
	EventTerminated

	// EventOther covers anything else the launcher observed, such as a
	// failed pipe read.
	EventOther
)

// String returns a human-readable name for the kind.
func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventTerminated:
		return "terminated"
	case EventOther:
		return "other"
	default:
		return "unknown"
	}
}

// StreamEvent is a single item of a worker's output stream.
type StreamEvent struct {
	Kind   EventKind
	Data   []byte     // stdout/stderr only
	Status ExitStatus // terminated only
	Err    error      // other only
}

func (e StreamEvent) String() string {
	switch e.Kind {
	case EventStdout, EventStderr:
		return fmt.Sprintf("%s(%d bytes)", e.Kind, len(e.Data))
	case EventTerminated:
		return fmt.Sprintf("terminated(%s)", e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("other(%v)", e.Err)
		}
		return "other"
	}
}

// ExitStatus describes how a worker ended. Exactly one of Code and Signal
// is normally set; both are nil if the status could not be determined.
type ExitStatus struct {
	Code   *int
	Signal *int
}

// String renders the status in a debug-style form, for example
// "ExitStatus { code: Some(0), signal: None }".
func (s ExitStatus) String() string {
	return fmt.Sprintf("ExitStatus { code: %s, signal: %s }", optionalInt(s.Code), optionalInt(s.Signal))
}

// ExitCode folds the status into a shell-style exit code: the code itself,
// 128+signal for signalled exits, or -1 when unknown.
func (s ExitStatus) ExitCode() int {
	switch {
	case s.Code != nil:
		return *s.Code
	case s.Signal != nil:
		return 128 + *s.Signal
	default:
		return -1
	}
}

// Success reports whether the worker exited with code 0.
func (s ExitStatus) Success() bool {
	return s.Code != nil && *s.Code == 0
}

func optionalInt(v *int) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("Some(%d)", *v)
}

// CodeStatus returns an ExitStatus for a normal exit.
func CodeStatus(code int) ExitStatus {
	return ExitStatus{Code: &code}
}

// SignalStatus returns an ExitStatus for a signalled exit.
func SignalStatus(sig int) ExitStatus {
	return ExitStatus{Signal: &sig}
}

// exitStatusFromWait converts the result of cmd.Wait() into an ExitStatus.
func exitStatusFromWait(err error) ExitStatus {
	if err == nil {
		return CodeStatus(0)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return SignalStatus(int(status.Signal()))
			}
			return CodeStatus(status.ExitStatus())
		}
		return CodeStatus(exitErr.ExitCode())
	}

	return ExitStatus{}
}
