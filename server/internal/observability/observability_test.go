package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rc := NewRequestContextWithID(logger, "req-1", "text", "alice")
	rc.Info("turn received")
	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Contains(t, buf.String(), "caller_id=alice")
	assert.NotContains(t, buf.String(), "intent=")

	buf.Reset()
	rc.SetIntent("CREATE_TASK")
	rc.Error("turn failed", errors.New("boom"), slog.Int64(LogFieldLatency, 12))
	assert.Contains(t, buf.String(), "intent=CREATE_TASK")
	assert.Contains(t, buf.String(), "error=boom")
	assert.Contains(t, buf.String(), "latency_ms=12")

	generated := NewRequestContext(logger, "voice", "bob")
	assert.Len(t, generated.RequestID, 36)
}

func TestRequestContextRoundTrip(t *testing.T) {
	rc := NewRequestContextWithID(nil, "", "mcp", "carol")
	ctx := WithRequestContext(context.Background(), rc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)
	assert.NotEmpty(t, got.RequestID)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(10)
	m.RecordRequest("text", 100*time.Millisecond, false)
	m.RecordRequest("text", 300*time.Millisecond, true)
	m.RecordRequest("voice", 50*time.Millisecond, false)
	m.RecordRateLimited()
	m.RecordUnauthorized()

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RequestTotal)
	assert.Equal(t, int64(1), s.RequestFailed)
	assert.Equal(t, int64(1), s.RateLimited)
	assert.Equal(t, int64(1), s.Unauthorized)
	assert.Equal(t, int64(200), s.Channels["text"].AvgLatencyMs)
	assert.Equal(t, int64(1), s.Channels["text"].Errors)
	assert.Equal(t, int64(100), s.P95LatencyMs)
	assert.InDelta(t, 66.67, s.SuccessRate(), 0.01)

	assert.Equal(t, 100.0, NewMetrics(0).Snapshot().SuccessRate())
}

func TestMetricsWindow(t *testing.T) {
	m := NewMetrics(2)
	for i := 1; i <= 5; i++ {
		m.RecordRequest("text", time.Duration(i)*time.Second, false)
	}
	assert.Len(t, m.durations, 2)
	assert.Equal(t, int64(4000), m.Snapshot().P95LatencyMs)
}
