package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	stdruntime "runtime"
	"slices"
	"testing"
	"time"
)

// =============================================================================
// Test runner
// =============================================================================

// shRunner implements Runner by running a shell script.
type shRunner struct {
	script string
}

func (r shRunner) BuildCommand(ctx context.Context, launchID string) (*exec.Cmd, error) {
	return exec.CommandContext(ctx, "/bin/sh", "-c", r.script), nil
}

func (r shRunner) Name() string {
	return "sh"
}

// failingRunner implements Runner and never builds a command.
type failingRunner struct {
	err error
}

func (r failingRunner) BuildCommand(ctx context.Context, launchID string) (*exec.Cmd, error) {
	return nil, r.err
}

func (r failingRunner) Name() string {
	return "failing"
}

func testLauncher() *Launcher {
	return NewLauncher(LauncherConfig{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		StopTimeout: 500 * time.Millisecond,
	})
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("process tests use /bin/sh")
	}
}

// collect drains the handle's events with a timeout.
func collect(t *testing.T, h *Handle) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-h.Events():
			if !ok {
				return events
			}
			events = append(events, evt)
		case <-timeout:
			t.Fatalf("timed out collecting events, got %d so far", len(events))
		}
	}
}

// =============================================================================
// Tests: Launch
// =============================================================================

func TestLaunch_StdoutLinesInOrderThenTerminated(t *testing.T) {
	skipOnWindows(t)

	h, err := testLauncher().Launch(context.Background(), shRunner{script: "echo one; echo two; echo three; exit 3"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if h.ID() == "" {
		t.Error("ID() should not be empty")
	}
	if h.Pid() <= 0 {
		t.Errorf("Pid() = %d", h.Pid())
	}

	events := collect(t, h)
	var lines []string
	for _, evt := range events[:len(events)-1] {
		if evt.Kind != EventStdout {
			t.Fatalf("unexpected event %v", evt)
		}
		lines = append(lines, string(evt.Data))
	}
	if !slices.Equal(lines, []string{"one", "two", "three"}) {
		t.Errorf("stdout lines = %v", lines)
	}

	last := events[len(events)-1]
	if last.Kind != EventTerminated {
		t.Fatalf("last event kind = %v, want terminated", last.Kind)
	}
	if last.Status.ExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", last.Status.ExitCode())
	}
	if !h.Exited() {
		t.Error("Exited() should be true after stream closed")
	}
}

func TestLaunch_StderrLines(t *testing.T) {
	skipOnWindows(t)

	h, err := testLauncher().Launch(context.Background(), shRunner{script: "echo oops >&2"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	events := collect(t, h)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
	if events[0].Kind != EventStderr || string(events[0].Data) != "oops" {
		t.Errorf("first event = %v %q", events[0].Kind, events[0].Data)
	}
	if !events[1].Status.Success() {
		t.Errorf("status = %s, want success", events[1].Status)
	}
}

func TestLaunch_UnterminatedFinalLine(t *testing.T) {
	skipOnWindows(t)

	h, err := testLauncher().Launch(context.Background(), shRunner{script: "printf 'a\\r\\npartial'"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	events := collect(t, h)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if string(events[0].Data) != "a" {
		t.Errorf("first line = %q, want a", events[0].Data)
	}
	if string(events[1].Data) != "partial" {
		t.Errorf("second line = %q, want partial", events[1].Data)
	}
}

func TestLaunch_LongLineNotSplit(t *testing.T) {
	skipOnWindows(t)

	// 200k characters, well past the reader buffer.
	h, err := testLauncher().Launch(context.Background(), shRunner{script: "head -c 200000 /dev/zero | tr '\\0' x; echo"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	events := collect(t, h)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if len(events[0].Data) != 200000 {
		t.Errorf("line length = %d, want 200000", len(events[0].Data))
	}
}

func TestLaunch_SpawnError(t *testing.T) {
	skipOnWindows(t)

	runner := NewEdgeRuntimeRunner(NewEdgeRuntimeConfig("/nonexistent/edge-runtime", "/res"))
	h, err := testLauncher().Launch(context.Background(), runner)
	if err == nil {
		t.Fatal("Launch() should fail for a missing executable")
	}
	if h != nil {
		t.Error("handle should be nil on spawn failure")
	}
	if !errors.Is(err, ErrSpawn) {
		t.Errorf("error = %v, want ErrSpawn", err)
	}
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) || spawnErr.Program != "/nonexistent/edge-runtime" {
		t.Errorf("SpawnError = %+v", spawnErr)
	}
}

func TestLaunch_BuildError(t *testing.T) {
	buildErr := errors.New("no command")
	_, err := testLauncher().Launch(context.Background(), failingRunner{err: buildErr})
	if !errors.Is(err, ErrSpawn) || !errors.Is(err, buildErr) {
		t.Errorf("error = %v, want ErrSpawn wrapping build error", err)
	}
}

func TestLaunch_NotTiedToContext(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := testLauncher().Launch(ctx, shRunner{script: "sleep 0.3; echo alive"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	cancel()

	events := collect(t, h)
	if len(events) != 2 || string(events[0].Data) != "alive" {
		t.Fatalf("worker should survive request cancellation, got %v", events)
	}
}

// =============================================================================
// Tests: Stop / Release
// =============================================================================

func TestLaunch_TerminatedWhenDescendantHoldsPipe(t *testing.T) {
	skipOnWindows(t)

	// The backgrounded sleep inherits stdout and outlives the worker.
	start := time.Now()
	h, err := testLauncher().Launch(context.Background(), shRunner{script: "echo hi; sleep 3 & exit 0"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed after the worker exited")
	}

	events := collect(t, h)
	if elapsed := time.Since(start); elapsed >= 2*time.Second {
		t.Errorf("stream ended after %v, want well before the descendant exits", elapsed)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
	if events[0].Kind != EventStdout || string(events[0].Data) != "hi" {
		t.Errorf("events[0] = %v, want stdout \"hi\"", events[0])
	}
	if events[1].Kind != EventTerminated || !events[1].Status.Success() {
		t.Errorf("events[1] = %v, want successful terminated", events[1])
	}
	if !h.Exited() {
		t.Error("Exited() should be true")
	}
}

func TestLaunch_SlowConsumerKeepsOutputAfterExit(t *testing.T) {
	skipOnWindows(t)

	h, err := testLauncher().Launch(context.Background(), shRunner{script: "i=0; while [ $i -lt 500 ]; do echo $i; i=$((i+1)); done"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	// Start reading only once the worker is gone and the drain window has passed.
	<-h.Done()
	time.Sleep(2 * drainDelay)

	events := collect(t, h)
	if len(events) != 501 {
		t.Fatalf("got %d events, want 500 lines plus terminated", len(events))
	}
	if got := string(events[499].Data); got != "499" {
		t.Errorf("last line = %q, want \"499\"", got)
	}
}

func TestHandle_StopRunning(t *testing.T) {
	skipOnWindows(t)

	h, err := testLauncher().Launch(context.Background(), shRunner{script: "exec sleep 30"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	h.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	status := h.Status()
	if status.Signal == nil {
		t.Fatalf("status = %s, want signalled", status)
	}
	if status.ExitCode() != 128+15 {
		t.Errorf("ExitCode() = %d, want 143", status.ExitCode())
	}
}

func TestHandle_StopAfterExitIsNoop(t *testing.T) {
	skipOnWindows(t)

	h, err := testLauncher().Launch(context.Background(), shRunner{script: "exit 0"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	collect(t, h)

	for i := 0; i < 2; i++ {
		if err := h.Stop(context.Background()); err != nil {
			t.Errorf("Stop() #%d error = %v", i+1, err)
		}
	}
	if !h.Status().Success() {
		t.Errorf("status = %s, want success", h.Status())
	}
}

func TestHandle_ReleaseUnblocksWorker(t *testing.T) {
	skipOnWindows(t)

	// Far more lines than the event buffer holds; nobody reads them.
	h, err := testLauncher().Launch(context.Background(), shRunner{script: "i=0; while [ $i -lt 500 ]; do echo $i; i=$((i+1)); done"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	h.Release()

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after Release()")
	}
}

// =============================================================================
// Table-Driven Tests: helpers
// =============================================================================

func TestTrimNewline(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"abc\n", "abc"},
		{"abc\r\n", "abc"},
		{"\n", ""},
		{"\r\n", ""},
		{"abc\r", "abc\r"},
	}

	for _, tt := range tests {
		got := string(trimNewline([]byte(tt.in)))
		if got != tt.want {
			t.Errorf("trimNewline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExitStatus_String(t *testing.T) {
	tests := []struct {
		name   string
		status ExitStatus
		want   string
		code   int
	}{
		{"code_zero", CodeStatus(0), "ExitStatus { code: Some(0), signal: None }", 0},
		{"code_two", CodeStatus(2), "ExitStatus { code: Some(2), signal: None }", 2},
		{"sigkill", SignalStatus(9), "ExitStatus { code: None, signal: Some(9) }", 137},
		{"unknown", ExitStatus{}, "ExitStatus { code: None, signal: None }", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.status.ExitCode(); got != tt.code {
				t.Errorf("ExitCode() = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestEventKind_String(t *testing.T) {
	kinds := map[EventKind]string{
		EventStdout:     "stdout",
		EventStderr:     "stderr",
		EventTerminated: "terminated",
		EventOther:      "other",
		EventKind(99):   "unknown",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("EventKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestProbeVersion(t *testing.T) {
	skipOnWindows(t)

	if _, err := ProbeVersion(context.Background(), "/nonexistent/edge-runtime"); err == nil {
		t.Error("ProbeVersion() should fail for a missing binary")
	}
}
