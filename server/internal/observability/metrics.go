package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts assistant requests per entry channel.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	rateLimited   atomic.Int64
	unauthorized  atomic.Int64

	channels map[string]*ChannelMetrics

	durations    []time.Duration
	maxDurations int
}

// ChannelMetrics holds the counters of one channel.
type ChannelMetrics struct {
	requests      atomic.Int64
	errors        atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

// NewMetrics creates a metrics collector keeping the last maxDurations samples.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		channels:     make(map[string]*ChannelMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a finished request on channel.
func (m *Metrics) RecordRequest(channel string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	cm := m.channel(channel)
	cm.requests.Add(1)
	cm.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		cm.errors.Add(1)
	}

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Add(1)
}

// RecordUnauthorized records a request rejected for a bad token.
func (m *Metrics) RecordUnauthorized() {
	m.unauthorized.Add(1)
}

func (m *Metrics) channel(name string) *ChannelMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm, ok := m.channels[name]
	if !ok {
		cm = &ChannelMetrics{}
		m.channels[name] = cm
	}
	return cm
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	channels := make(map[string]*ChannelSnapshot, len(m.channels))
	for name, cm := range m.channels {
		cs := &ChannelSnapshot{
			Requests: cm.requests.Load(),
			Errors:   cm.errors.Load(),
		}
		if cs.Requests > 0 {
			cs.AvgLatencyMs = cm.totalDuration.Load() / cs.Requests
		}
		channels[name] = cs
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		RateLimited:   m.rateLimited.Load(),
		Unauthorized:  m.unauthorized.Load(),
		Channels:      channels,
		P95LatencyMs:  percentile(m.durations, 0.95).Milliseconds(),
	}
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// MetricsSnapshot is a point-in-time snapshot of the transport counters.
type MetricsSnapshot struct {
	RequestTotal  int64                       `json:"requestTotal"`
	RequestFailed int64                       `json:"requestFailed"`
	RateLimited   int64                       `json:"rateLimited"`
	Unauthorized  int64                       `json:"unauthorized"`
	P95LatencyMs  int64                       `json:"p95LatencyMs"`
	Channels      map[string]*ChannelSnapshot `json:"channels"`
}

// ChannelSnapshot is the per-channel part of a MetricsSnapshot.
type ChannelSnapshot struct {
	Requests     int64 `json:"requests"`
	Errors       int64 `json:"errors"`
	AvgLatencyMs int64 `json:"avgLatencyMs"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
