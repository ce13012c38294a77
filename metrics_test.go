package host1x

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCacheCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.CacheHits)
	assert.EqualValues(t, 1, snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRate, 0.001)
}

func TestMetricsSubmitLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordSubmit(1_000_000)
	m.RecordSubmit(3_000_000)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.Submits)
	assert.EqualValues(t, 2_000_000, snap.AvgSubmitLatNs)
}

func TestMetricsWaitTimeouts(t *testing.T) {
	m := NewMetrics()
	m.RecordWait(500_000, false)
	m.RecordWait(10_000_000, true)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.WaitsTimedOut)
	assert.EqualValues(t, 5_250_000, snap.AvgWaitLatNs)
}

func TestMetricsSnapshotEmpty(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	assert.Zero(t, snap.CacheHits)
	assert.Zero(t, snap.Submits)
	assert.Zero(t, snap.AvgSubmitLatNs)
	assert.Zero(t, snap.CacheHitRate)
}

func TestNoOpObserver(t *testing.T) {
	var obs Observer = NoOpObserver{}
	assert.NotPanics(t, func() {
		obs.RecordCacheHit()
		obs.RecordCacheMiss()
		obs.RecordSubmit(1)
		obs.RecordWait(1, true)
	})
}

func TestMetricsImplementsObserver(t *testing.T) {
	var obs Observer = NewMetrics()
	obs.RecordCacheHit()
	obs.RecordSubmit(1_000)
	obs.RecordWait(1_000, false)

	snap := obs.(*Metrics).Snapshot()
	assert.EqualValues(t, 1, snap.CacheHits)
	assert.EqualValues(t, 1, snap.Submits)
}
