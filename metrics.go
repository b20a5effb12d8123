package tokenauth

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint8

const (
	// MetricTrustedIssue counts access tokens issued from pre-verified input.
	MetricTrustedIssue MetricID = iota
	// MetricLoginSuccess counts successful federated logins.
	MetricLoginSuccess
	// MetricLoginFailure counts federated logins rejected by the identity
	// trust chain or user storage.
	MetricLoginFailure
	// MetricRefreshSuccess counts successful refresh-token rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts refresh tokens rejected because
	// their embedded version was stale.
	MetricRefreshReuseDetected
	// MetricLogout counts session-wide revocations.
	MetricLogout
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds cache-line-padded atomic counters. When disabled, all
// operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot map[MetricID]uint64

// NewMetrics creates a [Metrics] instance. enabled=false yields a no-op
// instance that still satisfies every call site.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := make(MetricsSnapshot, metricIDCount)
	if m == nil || !m.enabled {
		return snapshot
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snapshot[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snapshot
}
