// Package metrics provides Prometheus metrics and the HTTP command API for
// edge-shell.
package metrics

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-edge-shell/internal/stats"
)

// =============================================================================
// Collector
// =============================================================================

// Collector manages the Prometheus metrics for edge runtime launches and the
// UI events forwarded from them.
type Collector struct {
	info            *prometheus.GaugeVec
	launches        prometheus.Counter
	spawnFailures   prometheus.Counter
	uiEvents        *prometheus.CounterVec
	publishFailures prometheus.Counter
	workerRunning   prometheus.Gauge
	workerExits     *prometheus.CounterVec
	workerUptime    prometheus.Histogram
	bytesForwarded  prometheus.Gauge
	chunkSizeP50    prometheus.Gauge
	chunkSizeP99    prometheus.Gauge

	// Timing
	startTime time.Time

	// For summary generation
	mu            sync.Mutex
	totalLaunches int64
	totalFailures int64
	exitCodes     map[int]int64
	uptimes       []time.Duration
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Sidecar string
}

// NewCollector creates a new metrics collector.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_shell_info",
				Help: "Information about the shell (value always 1)",
			},
			[]string{"version", "sidecar"},
		),
		launches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_shell_launches_total",
			Help: "Edge runtime processes started",
		}),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_shell_spawn_failures_total",
			Help: "Edge runtime launches that failed before the process started",
		}),
		uiEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_shell_ui_events_total",
				Help: "UI message events published, by worker event kind",
			},
			[]string{"kind"},
		),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edge_shell_publish_failures_total",
			Help: "UI events the UI layer rejected",
		}),
		workerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edge_shell_worker_running",
			Help: "1 while an edge runtime process is running",
		}),
		workerExits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_shell_worker_exits_total",
				Help: "Edge runtime exits by exit code",
			},
			[]string{"code"},
		),
		workerUptime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edge_shell_worker_uptime_seconds",
			Help:    "How long each edge runtime process ran",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 3600, 14400},
		}),
		bytesForwarded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edge_shell_forward_bytes",
			Help: "Output bytes forwarded by the current launch",
		}),
		chunkSizeP50: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edge_shell_chunk_size_p50_bytes",
			Help: "Median output line size of the current launch",
		}),
		chunkSizeP99: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edge_shell_chunk_size_p99_bytes",
			Help: "99th percentile output line size of the current launch",
		}),
		startTime: time.Now(),
		exitCodes: make(map[int]int64),
	}

	registry.MustRegister(
		c.info,
		c.launches,
		c.spawnFailures,
		c.uiEvents,
		c.publishFailures,
		c.workerRunning,
		c.workerExits,
		c.workerUptime,
		c.bytesForwarded,
		c.chunkSizeP50,
		c.chunkSizeP99,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Sidecar).Set(1)

	return c
}

// =============================================================================
// Event Recording Methods
// =============================================================================

// LaunchStarted records a worker that started successfully.
func (c *Collector) LaunchStarted() {
	c.launches.Inc()
	c.workerRunning.Set(1)

	c.mu.Lock()
	c.totalLaunches++
	c.mu.Unlock()
}

// SpawnFailed records a launch that never produced a process.
func (c *Collector) SpawnFailed() {
	c.spawnFailures.Inc()

	c.mu.Lock()
	c.totalFailures++
	c.mu.Unlock()
}

// RecordPublish records one UI publish attempt for an event kind.
func (c *Collector) RecordPublish(kind string, err error) {
	if err != nil {
		c.publishFailures.Inc()
		return
	}
	c.uiEvents.WithLabelValues(kind).Inc()
}

// RecordExit records a worker exit.
func (c *Collector) RecordExit(exitCode int, uptime time.Duration) {
	c.workerRunning.Set(0)
	c.workerExits.WithLabelValues(strconv.Itoa(exitCode)).Inc()
	c.workerUptime.Observe(uptime.Seconds())

	c.mu.Lock()
	c.exitCodes[exitCode]++
	c.uptimes = append(c.uptimes, uptime)
	c.mu.Unlock()
}

// RecordForwardStats publishes the current launch's forwarding gauges.
func (c *Collector) RecordForwardStats(s stats.Summary) {
	c.bytesForwarded.Set(float64(s.BytesForwarded))
	c.chunkSizeP50.Set(s.ChunkSizeP50)
	c.chunkSizeP99.Set(s.ChunkSizeP99)
}

// =============================================================================
// Summary Generation
// =============================================================================

// Summary holds the data for generating an exit summary.
type Summary struct {
	Duration      time.Duration
	TotalLaunches int64
	SpawnFailures int64
	ExitCodes     map[int]int64
	UptimeP50     time.Duration
	UptimeP95     time.Duration
	UptimeP99     time.Duration
}

// GenerateSummary creates a summary of the session.
func (c *Collector) GenerateSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Duration:      time.Since(c.startTime),
		TotalLaunches: c.totalLaunches,
		SpawnFailures: c.totalFailures,
		ExitCodes:     make(map[int]int64, len(c.exitCodes)),
	}

	for code, count := range c.exitCodes {
		s.ExitCodes[code] = count
	}

	if len(c.uptimes) > 0 {
		sorted := slices.Clone(c.uptimes)
		slices.Sort(sorted)

		s.UptimeP50 = percentile(sorted, 0.50)
		s.UptimeP95 = percentile(sorted, 0.95)
		s.UptimeP99 = percentile(sorted, 0.99)
	}

	return s
}

// TotalLaunches returns the number of workers started.
func (c *Collector) TotalLaunches() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLaunches
}

// =============================================================================
// Helper Functions
// =============================================================================

// percentile returns the value at the given percentile (0.0-1.0).
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
