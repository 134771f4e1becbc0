// Package timeseries computes rolling rates over a short history of samples.
//
// RateTracker counts forwarded lines. Add is lock-free; samples are taken at
// most once per sampleInterval, whenever Stats is called, so no background
// ticker is needed.
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// historySize covers the longest window at one sample per interval.
	historySize = 64

	sampleInterval = time.Second

	window1s  = 1 * time.Second
	window10s = 10 * time.Second
	window60s = 60 * time.Second
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type sample struct {
	at    time.Time
	count int64
}

// RateTracker tracks a cumulative count and its rate over 1s, 10s and 60s.
type RateTracker struct {
	total atomic.Int64

	mu      sync.Mutex
	history []sample // ring buffer, oldest at next once full
	next    int
	start   time.Time
	clock   Clock
}

// Rates is a snapshot of a RateTracker, in units per second.
type Rates struct {
	Total     int64
	Per1s     float64
	Per10s    float64
	Per60s    float64
	PerWindow float64 // since tracking started
}

// NewRateTracker creates a tracker using the wall clock.
func NewRateTracker() *RateTracker {
	return NewRateTrackerWithClock(realClock{})
}

// NewRateTrackerWithClock creates a tracker with a custom clock for tests.
func NewRateTrackerWithClock(clock Clock) *RateTracker {
	now := clock.Now()
	t := &RateTracker{
		history: make([]sample, 0, historySize),
		start:   now,
		clock:   clock,
	}
	t.history = append(t.history, sample{at: now})
	return t
}

// Add increases the count by n. Non-positive n is ignored.
func (t *RateTracker) Add(n int64) {
	if n > 0 {
		t.total.Add(n)
	}
}

// Stats samples the counter if a sample is due and returns the rates.
func (t *RateTracker) Stats() Rates {
	now := t.clock.Now()
	total := t.total.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.newest().at) >= sampleInterval {
		t.record(sample{at: now, count: total})
	}

	r := Rates{
		Total:  total,
		Per1s:  t.rateOver(now, total, window1s),
		Per10s: t.rateOver(now, total, window10s),
		Per60s: t.rateOver(now, total, window60s),
	}
	if elapsed := now.Sub(t.start).Seconds(); elapsed > 0 {
		r.PerWindow = float64(total) / elapsed
	}
	return r
}

func (t *RateTracker) record(s sample) {
	if len(t.history) < historySize {
		t.history = append(t.history, s)
		return
	}
	t.history[t.next] = s
	t.next = (t.next + 1) % historySize
}

// newest returns the most recent sample. mu must be held.
func (t *RateTracker) newest() sample {
	if len(t.history) < historySize {
		return t.history[len(t.history)-1]
	}
	return t.history[(t.next+historySize-1)%historySize]
}

// oldest returns the earliest retained sample. mu must be held.
func (t *RateTracker) oldest() sample {
	if len(t.history) < historySize {
		return t.history[0]
	}
	return t.history[t.next]
}

// rateOver measures from the newest sample at or before now-window, or from
// the oldest sample when the history is shorter than the window. mu must be
// held.
func (t *RateTracker) rateOver(now time.Time, total int64, window time.Duration) float64 {
	cutoff := now.Add(-window)

	base := t.oldest()
	for _, s := range t.history {
		if !s.at.After(cutoff) && s.at.After(base.at) {
			base = s
		}
	}

	elapsed := now.Sub(base.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(total-base.count) / elapsed
}

// Samples returns the number of retained samples.
func (t *RateTracker) Samples() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}
