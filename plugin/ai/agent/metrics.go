package agent

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxLatencySamples = 50

// DispatchMetrics counts handler runs per intent.
// All operations are safe for concurrent use.
type DispatchMetrics struct {
	mu sync.RWMutex

	total          atomic.Int64
	failures       atomic.Int64
	clarifications atomic.Int64

	calls     map[string]*atomic.Int64
	failed    map[string]*atomic.Int64
	latencies map[string][]time.Duration
}

// NewDispatchMetrics creates a new metrics collector.
func NewDispatchMetrics() *DispatchMetrics {
	return &DispatchMetrics{
		calls:     make(map[string]*atomic.Int64),
		failed:    make(map[string]*atomic.Int64),
		latencies: make(map[string][]time.Duration),
	}
}

// RecordDispatch records a completed handler run.
func (m *DispatchMetrics) RecordDispatch(intent string, duration time.Duration, success bool) {
	m.total.Add(1)
	if !success {
		m.failures.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.calls[intent] == nil {
		m.calls[intent] = &atomic.Int64{}
		m.failed[intent] = &atomic.Int64{}
		m.latencies[intent] = make([]time.Duration, 0, maxLatencySamples)
	}
	m.calls[intent].Add(1)
	if !success {
		m.failed[intent].Add(1)
	}

	// Keep only the last N samples
	if len(m.latencies[intent]) >= maxLatencySamples {
		m.latencies[intent] = m.latencies[intent][1:]
	}
	m.latencies[intent] = append(m.latencies[intent], duration)
}

// RecordClarification records a turn that ended with a question.
func (m *DispatchMetrics) RecordClarification(string) {
	m.clarifications.Add(1)
}

// IntentStats is the per-intent part of a MetricsSnapshot.
type IntentStats struct {
	Calls      int64         `json:"calls"`
	Failures   int64         `json:"failures"`
	AvgLatency time.Duration `json:"avgLatency"`
	P95Latency time.Duration `json:"p95Latency"`
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Total          int64                  `json:"total"`
	Failures       int64                  `json:"failures"`
	Clarifications int64                  `json:"clarifications"`
	SuccessRate    float64                `json:"successRate"`
	Intents        map[string]IntentStats `json:"intents"`
}

// Snapshot returns the current counters.
func (m *DispatchMetrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Total:          m.total.Load(),
		Failures:       m.failures.Load(),
		Clarifications: m.clarifications.Load(),
		Intents:        make(map[string]IntentStats),
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Total-s.Failures) / float64(s.Total) * 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for intent, calls := range m.calls {
		s.Intents[intent] = IntentStats{
			Calls:      calls.Load(),
			Failures:   m.failed[intent].Load(),
			AvgLatency: average(m.latencies[intent]),
			P95Latency: percentile(m.latencies[intent], 0.95),
		}
	}
	return s
}

func average(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range samples {
		sum += d
	}
	return sum / time.Duration(len(samples))
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
