package util

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// RequestMetrics captures the measurable side of one request: a monotonic
// start instant and the query counter baseline. One value lives per request;
// it must never be shared between requests.
type RequestMetrics struct {
	start    time.Time
	counter  *atomic.Int64
	baseline int64
}

// MetricsSnapshot is the finalized measurement set for a completed request.
// Memory and CPU are process-wide instantaneous snapshots, not per-request
// attribution: two concurrent requests record near-identical values.
type MetricsSnapshot struct {
	ExecutionTime  float64
	DurationBucket string
	QueryCount     int
	MemoryUsageMB  float64
	CPUPercent     float64
}

// StartRequestMetrics begins timing a request against the given query counter.
// The counter may be nil, in which case the query delta is reported as zero.
func StartRequestMetrics(counter *atomic.Int64) *RequestMetrics {
	m := &RequestMetrics{
		start:   time.Now(),
		counter: counter,
	}
	if counter != nil {
		m.baseline = counter.Load()
	}
	return m
}

// Finalize produces the measurement snapshot at response time.
func (m *RequestMetrics) Finalize() MetricsSnapshot {
	elapsed := time.Since(m.start).Seconds()

	snapshot := MetricsSnapshot{
		ExecutionTime:  elapsed,
		DurationBucket: DurationBucket(elapsed),
		MemoryUsageMB:  memoryUsageMB(),
		CPUPercent:     cpuPercent(),
	}
	if m.counter != nil {
		snapshot.QueryCount = int(m.counter.Load() - m.baseline)
	}
	return snapshot
}

func memoryUsageMB() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return math.Round(float64(vm.Used)/(1024*1024)*100) / 100
}

func cpuPercent() float64 {
	// Zero interval returns the utilization since the previous call, which is
	// all the pipeline needs for a coarse triage figure.
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0
	}
	return percents[0]
}
