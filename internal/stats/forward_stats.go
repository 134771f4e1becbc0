// Package stats tracks what the event forwarder has seen and published for a
// single worker launch.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-edge-shell/internal/timeseries"
)

// ForwardStats holds per-launch forwarding counters.
//
// Thread-safe: counters are atomics, the digest is mutex-protected.
type ForwardStats struct {
	LaunchID  string
	StartTime time.Time

	StdoutChunks atomic.Int64
	StderrChunks atomic.Int64
	OtherEvents  atomic.Int64
	Terminations atomic.Int64

	Published       atomic.Int64
	PublishFailures atomic.Int64
	BytesForwarded  atomic.Int64

	digestMu    sync.Mutex
	chunkDigest *tdigest.TDigest

	lineRate *timeseries.RateTracker
}

// NewForwardStats creates stats for one launch.
func NewForwardStats(launchID string) *ForwardStats {
	return &ForwardStats{
		LaunchID:    launchID,
		StartTime:   time.Now(),
		chunkDigest: tdigest.NewWithCompression(100),
		lineRate:    timeseries.NewRateTracker(),
	}
}

// RecordChunk records one stdout or stderr chunk of n bytes.
func (s *ForwardStats) RecordChunk(stderr bool, n int) {
	if stderr {
		s.StderrChunks.Add(1)
	} else {
		s.StdoutChunks.Add(1)
	}
	s.BytesForwarded.Add(int64(n))
	s.lineRate.Add(1)

	s.digestMu.Lock()
	s.chunkDigest.Add(float64(n), 1)
	s.digestMu.Unlock()
}

// RecordOther records an event that produced no UI notification.
func (s *ForwardStats) RecordOther() {
	s.OtherEvents.Add(1)
}

// RecordTerminated records the worker's termination event.
func (s *ForwardStats) RecordTerminated() {
	s.Terminations.Add(1)
}

// RecordPublish records the outcome of one UI publish.
func (s *ForwardStats) RecordPublish(err error) {
	if err != nil {
		s.PublishFailures.Add(1)
		return
	}
	s.Published.Add(1)
}

// ChunkSizeQuantile returns the q-quantile (0..1) of chunk sizes in bytes,
// or 0 if no chunks have been recorded.
func (s *ForwardStats) ChunkSizeQuantile(q float64) float64 {
	s.digestMu.Lock()
	defer s.digestMu.Unlock()
	if s.chunkDigest.Count() == 0 {
		return 0
	}
	return s.chunkDigest.Quantile(q)
}

// Summary is a point-in-time copy of ForwardStats.
type Summary struct {
	LaunchID        string
	Elapsed         time.Duration
	StdoutChunks    int64
	StderrChunks    int64
	OtherEvents     int64
	Terminations    int64
	Published       int64
	PublishFailures int64
	BytesForwarded  int64
	ChunkSizeP50    float64
	ChunkSizeP99    float64

	// Lines per second over the last 1s and 10s.
	LineRate1s  float64
	LineRate10s float64
}

// Summary returns a snapshot of the current values.
func (s *ForwardStats) Summary() Summary {
	rates := s.lineRate.Stats()
	return Summary{
		LaunchID:        s.LaunchID,
		Elapsed:         time.Since(s.StartTime),
		StdoutChunks:    s.StdoutChunks.Load(),
		StderrChunks:    s.StderrChunks.Load(),
		OtherEvents:     s.OtherEvents.Load(),
		Terminations:    s.Terminations.Load(),
		Published:       s.Published.Load(),
		PublishFailures: s.PublishFailures.Load(),
		BytesForwarded:  s.BytesForwarded.Load(),
		ChunkSizeP50:    s.ChunkSizeQuantile(0.50),
		ChunkSizeP99:    s.ChunkSizeQuantile(0.99),
		LineRate1s:      rates.Per1s,
		LineRate10s:     rates.Per10s,
	}
}

// Chunks returns the total number of stdout and stderr chunks.
func (s Summary) Chunks() int64 {
	return s.StdoutChunks + s.StderrChunks
}
