// Package telemetry aggregates measured runtime statistics across
// interpreter runs and optionally exports run spans over OTLP for
// Grafana, Datadog, or any OpenTelemetry collector.
//
// Every number a Collector reports is derived from actual run results.
// Nothing in this package synthesizes metrics; Summary.Simulated exists
// so wire consumers can tell measured payloads apart from demo fixtures
// they may fabricate on their side.
package telemetry

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// RunStats summarizes one completed interpretation for aggregation.
type RunStats struct {
	Duration           time.Duration
	Statements         int64
	AllocatedObjects   int64
	FreedObjects       int64
	Collections        int64
	SafetyViolations   int
	DeadlineViolations int
	Diagnostics        int
	Halted             bool
}

// maxLatencySamples bounds the duration window percentiles are computed
// over; older runs age out.
const maxLatencySamples = 1000

// Collector aggregates run statistics. Safe for concurrent use; the
// HTTP server records runs from handler goroutines.
type Collector struct {
	runs               int64
	halts              int64
	statements         int64
	allocatedObjects   int64
	freedObjects       int64
	collections        int64
	safetyViolations   int64
	deadlineViolations int64
	diagnostics        int64

	mu        sync.RWMutex
	latencies []time.Duration // last maxLatencySamples run durations, oldest first
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		latencies: make([]time.Duration, 0, maxLatencySamples),
	}
}

// Record folds one run into the aggregate.
func (c *Collector) Record(rs RunStats) {
	atomic.AddInt64(&c.runs, 1)
	if rs.Halted {
		atomic.AddInt64(&c.halts, 1)
	}
	atomic.AddInt64(&c.statements, rs.Statements)
	atomic.AddInt64(&c.allocatedObjects, rs.AllocatedObjects)
	atomic.AddInt64(&c.freedObjects, rs.FreedObjects)
	atomic.AddInt64(&c.collections, rs.Collections)
	atomic.AddInt64(&c.safetyViolations, int64(rs.SafetyViolations))
	atomic.AddInt64(&c.deadlineViolations, int64(rs.DeadlineViolations))
	atomic.AddInt64(&c.diagnostics, int64(rs.Diagnostics))

	c.mu.Lock()
	if len(c.latencies) >= maxLatencySamples {
		c.latencies = c.latencies[1:]
	}
	c.latencies = append(c.latencies, rs.Duration)
	c.mu.Unlock()
}

// Runs returns the number of runs recorded so far.
func (c *Collector) Runs() int64 {
	return atomic.LoadInt64(&c.runs)
}

// Percentile returns the p-th percentile (0..1) of recorded run
// durations.
func (c *Collector) Percentile(p float64) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Percentile(c.latencies, p)
}

// Percentile computes the p-th percentile (0..1) of samples without
// modifying them. Zero when samples is empty.
func Percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Summary is a point-in-time view of the aggregate. Simulated is false
// on every summary a Collector produces: collectors only ever see
// measured results.
type Summary struct {
	Simulated          bool          `json:"simulated"`
	Runs               int64         `json:"runs"`
	Halts              int64         `json:"halts"`
	Statements         int64         `json:"statements"`
	AllocatedObjects   int64         `json:"allocatedObjects"`
	FreedObjects       int64         `json:"freedObjects"`
	Collections        int64         `json:"collections"`
	SafetyViolations   int64         `json:"safetyViolations"`
	DeadlineViolations int64         `json:"deadlineViolations"`
	Diagnostics        int64         `json:"diagnostics"`
	P50Latency         time.Duration `json:"p50LatencyNs"`
	P95Latency         time.Duration `json:"p95LatencyNs"`
	P99Latency         time.Duration `json:"p99LatencyNs"`
}

// Summary snapshots the aggregate.
func (c *Collector) Summary() Summary {
	return Summary{
		Runs:               atomic.LoadInt64(&c.runs),
		Halts:              atomic.LoadInt64(&c.halts),
		Statements:         atomic.LoadInt64(&c.statements),
		AllocatedObjects:   atomic.LoadInt64(&c.allocatedObjects),
		FreedObjects:       atomic.LoadInt64(&c.freedObjects),
		Collections:        atomic.LoadInt64(&c.collections),
		SafetyViolations:   atomic.LoadInt64(&c.safetyViolations),
		DeadlineViolations: atomic.LoadInt64(&c.deadlineViolations),
		Diagnostics:        atomic.LoadInt64(&c.diagnostics),
		P50Latency:         c.Percentile(0.50),
		P95Latency:         c.Percentile(0.95),
		P99Latency:         c.Percentile(0.99),
	}
}

// ToJSON serializes the summary.
func (s Summary) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// Reset clears the aggregate.
func (c *Collector) Reset() {
	atomic.StoreInt64(&c.runs, 0)
	atomic.StoreInt64(&c.halts, 0)
	atomic.StoreInt64(&c.statements, 0)
	atomic.StoreInt64(&c.allocatedObjects, 0)
	atomic.StoreInt64(&c.freedObjects, 0)
	atomic.StoreInt64(&c.collections, 0)
	atomic.StoreInt64(&c.safetyViolations, 0)
	atomic.StoreInt64(&c.deadlineViolations, 0)
	atomic.StoreInt64(&c.diagnostics, 0)

	c.mu.Lock()
	c.latencies = c.latencies[:0]
	c.mu.Unlock()
}
