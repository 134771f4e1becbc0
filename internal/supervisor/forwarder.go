package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/randomizedcoder/go-edge-shell/internal/logging"
	"github.com/randomizedcoder/go-edge-shell/internal/process"
	"github.com/randomizedcoder/go-edge-shell/internal/stats"
	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

const terminatedPrefix = "Terminated: "

// ErrPublish reports that the UI rejected an event.
var ErrPublish = errors.New("publish failed")

// PublishError carries the event that could not be delivered.
type PublishError struct {
	Event string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %q: %v", e.Event, e.Err)
}

func (e *PublishError) Unwrap() []error {
	return []error{ErrPublish, e.Err}
}

// Source is the consuming end of a worker's event stream.
type Source interface {
	ID() string
	Events() <-chan process.StreamEvent
}

// ForwarderConfig holds configuration for creating a Forwarder.
type ForwarderConfig struct {
	Source  Source
	Emitter window.Emitter
	Logger  *slog.Logger

	// Stats and Recorder are created from the source ID when nil.
	Stats    *stats.ForwardStats
	Recorder *logging.OutputRecorder

	// OnPublish is called after every UI publish attempt.
	OnPublish func(kind process.EventKind, err error)
}

// Forwarder drains a worker's event stream and republishes each output line
// and the termination as "message" UI events, strictly in arrival order.
type Forwarder struct {
	source    Source
	emitter   window.Emitter
	logger    *slog.Logger
	stats     *stats.ForwardStats
	recorder  *logging.OutputRecorder
	onPublish func(kind process.EventKind, err error)
}

// NewForwarder creates a Forwarder. It does not start reading.
func NewForwarder(cfg ForwarderConfig) *Forwarder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	st := cfg.Stats
	if st == nil {
		st = stats.NewForwardStats(cfg.Source.ID())
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = logging.NewOutputRecorder(cfg.Source.ID(), logger)
	}
	return &Forwarder{
		source:    cfg.Source,
		emitter:   cfg.Emitter,
		logger:    logger,
		stats:     st,
		recorder:  rec,
		onPublish: cfg.OnPublish,
	}
}

// Run consumes the stream until it yields EventTerminated, the stream closes,
// or ctx is cancelled. Cancellation returns ctx.Err() and leaves the worker
// alone. A failed publish is logged and forwarding continues.
func (f *Forwarder) Run(ctx context.Context) error {
	events := f.source.Events()
	for {
		if ctx.Err() != nil {
			f.logger.Debug("forwarder_cancelled", "launch_id", f.source.ID())
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			f.logger.Debug("forwarder_cancelled", "launch_id", f.source.ID())
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				f.logger.Debug("forwarder_stream_closed", "launch_id", f.source.ID())
				return nil
			}
			if f.handle(evt) {
				return nil
			}
		}
	}
}

// handle processes one event and reports whether the loop should stop.
func (f *Forwarder) handle(evt process.StreamEvent) bool {
	switch evt.Kind {
	case process.EventStdout:
		line := FormatStdout(evt.Data)
		f.stats.RecordChunk(false, len(evt.Data))
		f.publish(evt.Kind, line)
		f.recorder.Record("stdout", line)

	case process.EventStderr:
		line := FormatStderr(evt.Data)
		f.stats.RecordChunk(true, len(evt.Data))
		f.publish(evt.Kind, line)
		f.recorder.Record("stderr", line)

	case process.EventTerminated:
		line := FormatTerminated(evt.Status)
		f.stats.RecordTerminated()
		f.publish(evt.Kind, line)
		f.recorder.Record("terminated", line)
		return true

	default:
		f.stats.RecordOther()
		f.recorder.Record("other", evt.String())
	}
	return false
}

func (f *Forwarder) publish(kind process.EventKind, payload string) {
	err := f.emitter.Emit(window.EventMessage, payload)
	if err != nil {
		err = &PublishError{Event: window.EventMessage, Err: err}
		f.logger.Warn("publish_failed",
			"launch_id", f.source.ID(),
			"kind", kind.String(),
			"error", err,
		)
	}
	f.stats.RecordPublish(err)
	if f.onPublish != nil {
		f.onPublish(kind, err)
	}
}

// Stats returns the forwarding statistics.
func (f *Forwarder) Stats() *stats.ForwardStats {
	return f.stats
}

// Recorder returns the output recorder.
func (f *Forwarder) Recorder() *logging.OutputRecorder {
	return f.recorder
}

// DecodeLossy converts b to text, replacing each invalid UTF-8 sequence with
// U+FFFD. It never fails.
func DecodeLossy(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

// FormatStdout renders a stdout chunk as a quoted string wrapped in single
// quotes, for example 'hello' becomes '"hello"'. Quoting follows
// strconv.Quote: control bytes such as ANSI colour codes appear as \x1b,
// not \u{1b}, and printable non-ASCII text is kept as is.
func FormatStdout(b []byte) string {
	return "'" + strconv.Quote(DecodeLossy(b)) + "'"
}

// FormatStderr renders a stderr chunk as a quoted string, escaped the same
// way as FormatStdout.
func FormatStderr(b []byte) string {
	return strconv.Quote(DecodeLossy(b))
}

// FormatTerminated renders the termination payload on a single line.
func FormatTerminated(status process.ExitStatus) string {
	return terminatedPrefix + status.String()
}
