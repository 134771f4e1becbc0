package logging

import (
	"log/slog"
	"sync"
	"unicode/utf8"
)

const (
	// MaxLineLength is the maximum length of a line written to the log.
	// The UI always receives the full line.
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent lines kept per launch.
	MaxBufferedLines = 100
)

// OutputRecorder records a worker's output on the local console log and
// keeps the most recent lines for the exit summary.
type OutputRecorder struct {
	launchID string
	logger   *slog.Logger

	// Circular buffer for recent lines
	buffer []string
	bufIdx int
	count  int
	mu     sync.Mutex
}

// NewOutputRecorder creates a recorder for one launch.
func NewOutputRecorder(launchID string, logger *slog.Logger) *OutputRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutputRecorder{
		launchID: launchID,
		logger:   logger,
		buffer:   make([]string, MaxBufferedLines),
	}
}

// Record logs one formatted line at info level under the given stream name
// ("stdout", "stderr", "terminated", "other") and buffers it.
func (r *OutputRecorder) Record(stream, line string) {
	if len(line) > MaxLineLength {
		line = truncateLine(line, MaxLineLength) + "...(truncated)"
	}

	r.mu.Lock()
	r.buffer[r.bufIdx] = line
	r.bufIdx = (r.bufIdx + 1) % MaxBufferedLines
	if r.count < MaxBufferedLines {
		r.count++
	}
	r.mu.Unlock()

	r.logger.Info("worker_output",
		"launch_id", r.launchID,
		"stream", stream,
		"line", line,
	)
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (r *OutputRecorder) RecentLines(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		lines = append(lines, r.buffer[idx])
	}
	return lines
}

// truncateLine cuts line to at most n bytes without splitting a rune.
func truncateLine(line string, n int) string {
	for n > 0 && !utf8.RuneStart(line[n]) {
		n--
	}
	return line[:n]
}
