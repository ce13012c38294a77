package host1x

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the submit/wait latency histogram buckets in
// nanoseconds, covering from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks cache and submission statistics for a Device.
type Metrics struct {
	CacheHits   atomic.Uint64
	CacheMisses atomic.Uint64

	Submits     atomic.Uint64
	SubmitErrs  atomic.Uint64

	Waits      atomic.Uint64
	WaitsTimedOut atomic.Uint64

	TotalSubmitLatencyNs atomic.Uint64
	TotalWaitLatencyNs   atomic.Uint64

	// SubmitLatencyBuckets[i] counts submits with latency <= LatencyBuckets[i].
	SubmitLatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a new metrics accumulator.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) RecordCacheHit()  { m.CacheHits.Add(1) }
func (m *Metrics) RecordCacheMiss() { m.CacheMisses.Add(1) }

func (m *Metrics) RecordSubmit(latencyNs int64) {
	m.Submits.Add(1)
	m.TotalSubmitLatencyNs.Add(uint64(latencyNs))
	for i, bucket := range LatencyBuckets {
		if uint64(latencyNs) <= bucket {
			m.SubmitLatencyBuckets[i].Add(1)
		}
	}
}

func (m *Metrics) RecordWait(latencyNs int64, timedOut bool) {
	m.Waits.Add(1)
	m.TotalWaitLatencyNs.Add(uint64(latencyNs))
	if timedOut {
		m.WaitsTimedOut.Add(1)
	}
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	CacheHits       uint64
	CacheMisses     uint64
	CacheHitRate    float64
	Submits         uint64
	WaitsTimedOut   uint64
	AvgSubmitLatNs  uint64
	AvgWaitLatNs    uint64
	UptimeNs        uint64
}

// Snapshot computes derived statistics from the accumulated counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	hits := m.CacheHits.Load()
	misses := m.CacheMisses.Load()
	submits := m.Submits.Load()
	waits := m.Waits.Load()

	snap := MetricsSnapshot{
		CacheHits:     hits,
		CacheMisses:   misses,
		Submits:       submits,
		WaitsTimedOut: m.WaitsTimedOut.Load(),
		UptimeNs:      uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
	if hits+misses > 0 {
		snap.CacheHitRate = float64(hits) / float64(hits+misses)
	}
	if submits > 0 {
		snap.AvgSubmitLatNs = m.TotalSubmitLatencyNs.Load() / submits
	}
	if waits > 0 {
		snap.AvgWaitLatNs = m.TotalWaitLatencyNs.Load() / waits
	}
	return snap
}

// Observer allows pluggable metrics collection for cache and submission
// events.
type Observer interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordSubmit(latencyNs int64)
	RecordWait(latencyNs int64, timedOut bool)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) RecordCacheHit()                       {}
func (NoOpObserver) RecordCacheMiss()                      {}
func (NoOpObserver) RecordSubmit(int64)                    {}
func (NoOpObserver) RecordWait(int64, bool)                {}

var _ Observer = (*Metrics)(nil)
var _ Observer = NoOpObserver{}
