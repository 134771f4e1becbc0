package process

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBufferSize  = 64
	defaultStopTimeout = 2 * time.Second
	readerBufferSize   = 64 * 1024

	// drainDelay is how long a pipe read may stay blocked after the worker
	// has exited before the pipe is closed. A descendant that inherited the
	// worker's stdout or stderr keeps the pipe open past the worker's exit.
	drainDelay        = 250 * time.Millisecond
	drainPollInterval = 25 * time.Millisecond
)

// LauncherConfig holds configuration for creating a new Launcher.
type LauncherConfig struct {
	Logger *slog.Logger

	// BufferSize is the capacity of each handle's event channel.
	BufferSize int

	// StopTimeout is how long Stop waits after SIGTERM before SIGKILL.
	StopTimeout time.Duration
}

// Launcher starts worker processes. Each Launch creates exactly one process
// and an independent Handle; nothing is pooled or reused.
type Launcher struct {
	logger      *slog.Logger
	bufferSize  int
	stopTimeout time.Duration
}

// NewLauncher creates a Launcher with defaults applied.
func NewLauncher(cfg LauncherConfig) *Launcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &Launcher{
		logger:      logger,
		bufferSize:  bufferSize,
		stopTimeout: stopTimeout,
	}
}

// Launch builds the runner's command and starts it. The process is not tied
// to ctx: cancelling ctx after Launch returns does not kill the worker, use
// Handle.Stop for that.
//
// On failure the returned error wraps ErrSpawn and no process exists.
func (l *Launcher) Launch(ctx context.Context, runner Runner) (*Handle, error) {
	id := uuid.NewString()

	cmd, err := runner.BuildCommand(context.WithoutCancel(ctx), id)
	if err != nil {
		return nil, &SpawnError{Program: runner.Name(), Err: err}
	}

	stdout, stdoutW, err := newOutputPipe()
	if err != nil {
		return nil, &SpawnError{Program: cmd.Path, Err: err}
	}
	stderr, stderrW, err := newOutputPipe()
	if err != nil {
		stdout.Close()
		stdoutW.Close()
		return nil, &SpawnError{Program: cmd.Path, Err: err}
	}
	// *os.File writers are handed to the child directly, so cmd.Wait
	// returns when the worker exits rather than when the pipes close.
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	configureCmdSysProcAttr(cmd)

	err = cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if err != nil {
		stdout.Close()
		stderr.Close()
		l.logger.Error("failed_to_start_process",
			"launch_id", id,
			"program", cmd.Path,
			"error", err,
		)
		return nil, &SpawnError{Program: cmd.Path, Err: err}
	}

	h := &Handle{
		id:          id,
		name:        runner.Name(),
		cmd:         cmd,
		events:      make(chan StreamEvent, l.bufferSize),
		waitDone:    make(chan struct{}),
		released:    make(chan struct{}),
		stopTimeout: l.stopTimeout,
		logger:      l.logger,
		startTime:   time.Now(),
	}

	l.logger.Info("worker_started",
		"launch_id", id,
		"name", h.name,
		"pid", cmd.Process.Pid,
	)

	pipes := []*outputPipe{stdout, stderr}
	readersDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go h.readLines(stdout, EventStdout, &wg)
	go h.readLines(stderr, EventStderr, &wg)
	go func() {
		wg.Wait()
		close(readersDone)
	}()
	go h.wait(pipes, readersDone)

	return h, nil
}

// Handle is a running worker plus the receiving end of its event stream.
// The stream has a single consumer.
type Handle struct {
	id        string
	name      string
	cmd       *exec.Cmd
	startTime time.Time

	events chan StreamEvent

	waitDone chan struct{}
	status   ExitStatus

	released    chan struct{}
	releaseOnce sync.Once

	stopTimeout time.Duration
	logger      *slog.Logger
}

// ID returns the launch identifier.
func (h *Handle) ID() string {
	return h.id
}

// Name returns the runner name.
func (h *Handle) Name() string {
	return h.name
}

// Pid returns the OS process id.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Events returns the worker's event stream. The channel delivers stdout and
// stderr lines in arrival order, then one EventTerminated, then closes.
func (h *Handle) Events() <-chan StreamEvent {
	return h.events
}

// Done is closed once the process has exited and been reaped. This can
// happen before the event stream ends while buffered output is drained.
func (h *Handle) Done() <-chan struct{} {
	return h.waitDone
}

// Exited reports whether the process has been reaped.
func (h *Handle) Exited() bool {
	select {
	case <-h.waitDone:
		return true
	default:
		return false
	}
}

// Status returns the exit status. Only meaningful once Done is closed.
func (h *Handle) Status() ExitStatus {
	<-h.waitDone
	return h.status
}

// Uptime returns how long the process ran, or has been running.
func (h *Handle) Uptime() time.Duration {
	return time.Since(h.startTime)
}

// Release tells the handle that nobody will read Events any more. Pending
// and future events are discarded so the worker's pipes keep draining.
// Safe to call multiple times.
func (h *Handle) Release() {
	h.releaseOnce.Do(func() { close(h.released) })
}

// readLines reads newline-delimited chunks from r until EOF. Lines are not
// length-limited; the trailing newline (and carriage return) is stripped.
func (h *Handle) readLines(r io.Reader, kind EventKind, wg *sync.WaitGroup) {
	defer wg.Done()

	br := bufio.NewReaderSize(r, readerBufferSize)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			h.send(StreamEvent{Kind: kind, Data: trimNewline(line)})
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) && !errors.Is(err, os.ErrClosed) {
			h.send(StreamEvent{Kind: EventOther, Err: err})
		}
		return
	}
}

// wait reaps the process as soon as it exits, drains both pipes, then
// publishes the final EventTerminated and closes the stream.
func (h *Handle) wait(pipes []*outputPipe, readersDone <-chan struct{}) {
	err := h.cmd.Wait()
	h.status = exitStatusFromWait(err)
	close(h.waitDone)

	h.logger.Info("worker_exited",
		"launch_id", h.id,
		"pid", h.cmd.Process.Pid,
		"exit_code", h.status.ExitCode(),
		"uptime", h.Uptime().String(),
	)

	h.drain(pipes, readersDone)

	h.send(StreamEvent{Kind: EventTerminated, Status: h.status})
	close(h.events)
}

// drain waits for both readers to finish. A pipe whose read has been blocked
// for drainDelay after the worker exited is held open by a descendant and is
// closed, which ends its reader. Readers blocked on a slow consumer are left
// alone so no output the worker wrote is lost.
func (h *Handle) drain(pipes []*outputPipe, readersDone <-chan struct{}) {
	defer func() {
		for _, p := range pipes {
			p.Close()
		}
	}()

	exited := time.Now()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-readersDone:
			return
		case <-ticker.C:
		}
		if time.Since(exited) < drainDelay {
			continue
		}
		for _, p := range pipes {
			if p.stalled(drainDelay) {
				h.logger.Debug("closing_inherited_pipe",
					"launch_id", h.id,
					"pid", h.cmd.Process.Pid,
				)
				p.Close()
			}
		}
	}
}

func (h *Handle) send(evt StreamEvent) {
	select {
	case h.events <- evt:
	case <-h.released:
	}
}

func trimNewline(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n]
}

// outputPipe is the parent's read end of a worker output pipe. It records
// when the current Read started so a read stuck on a pipe nobody will close
// can be told apart from a reader waiting on its consumer.
type outputPipe struct {
	f         *os.File
	readSince atomic.Int64
	closeOnce sync.Once
}

func newOutputPipe() (*outputPipe, *os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	return &outputPipe{f: r}, w, nil
}

func (p *outputPipe) Read(b []byte) (int, error) {
	p.readSince.Store(time.Now().UnixNano())
	n, err := p.f.Read(b)
	p.readSince.Store(0)
	return n, err
}

// stalled reports whether a Read has been blocked for at least d.
func (p *outputPipe) stalled(d time.Duration) bool {
	since := p.readSince.Load()
	return since != 0 && time.Since(time.Unix(0, since)) >= d
}

func (p *outputPipe) Close() {
	p.closeOnce.Do(func() { _ = p.f.Close() })
}
