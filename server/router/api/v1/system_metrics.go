package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/coworkr/plugin/ai/agent"
	"github.com/hrygo/coworkr/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64                                     `json:"total_requests"`
	SuccessRate   float64                                   `json:"success_rate"`
	P95LatencyMs  int64                                     `json:"p95_latency_ms"`
	ErrorCount    int64                                     `json:"error_count"`
	RateLimited   int64                                     `json:"rate_limited"`
	Unauthorized  int64                                     `json:"unauthorized"`
	Channels      map[string]*observability.ChannelSnapshot `json:"channels"`
	Dispatch      *agent.MetricsSnapshot                    `json:"dispatch,omitempty"`
}

// GetMetricsOverview returns the transport and dispatch counters.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snap := s.Metrics.Snapshot()
	resp := MetricsOverviewResponse{
		TotalRequests: snap.RequestTotal,
		SuccessRate:   snap.SuccessRate(),
		P95LatencyMs:  snap.P95LatencyMs,
		ErrorCount:    snap.RequestFailed,
		RateLimited:   snap.RateLimited,
		Unauthorized:  snap.Unauthorized,
		Channels:      snap.Channels,
	}
	if s.Dispatch != nil {
		d := s.Dispatch.Snapshot()
		resp.Dispatch = &d
	}
	return c.JSON(http.StatusOK, resp)
}
