// Package v1 serves the assistant HTTP API.
package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/coworkr/internal/profile"
	"github.com/hrygo/coworkr/plugin/ai/agent"
	"github.com/hrygo/coworkr/plugin/ai/assistant"
	"github.com/hrygo/coworkr/server/auth"
	"github.com/hrygo/coworkr/server/internal/observability"
	"github.com/hrygo/coworkr/server/middleware"
)

// maxConcurrentTranscriptions limits parallel voice uploads held in memory.
const maxConcurrentTranscriptions = 4

// AssistantService runs assistant turns.
type AssistantService interface {
	Handle(ctx context.Context, req *assistant.Request) *assistant.Response
	HandleVoice(ctx context.Context, caller string, audio []byte, filename string, wantsVoice bool) *assistant.Response
}

// DispatchStats exposes the handler counters.
type DispatchStats interface {
	Snapshot() agent.MetricsSnapshot
}

var _ AssistantService = (*assistant.Assistant)(nil)
var _ DispatchStats = (*agent.DispatchMetrics)(nil)

type APIV1Service struct {
	Profile   *profile.Profile
	Assistant AssistantService
	Dispatch  DispatchStats
	Metrics   *observability.Metrics

	Authenticator *auth.Authenticator
	RateLimiter   *middleware.RateLimiter

	// voiceSemaphore bounds concurrent audio uploads.
	voiceSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, svc AssistantService, dispatch DispatchStats) *APIV1Service {
	return &APIV1Service{
		Profile:        profile,
		Assistant:      svc,
		Dispatch:       dispatch,
		Metrics:        observability.NewMetrics(1000),
		Authenticator:  auth.NewAuthenticator(profile.JWTSecret),
		RateLimiter:    middleware.NewRateLimiter(profile.RateLimit, profile.RateBurst),
		voiceSemaphore: semaphore.NewWeighted(maxConcurrentTranscriptions),
	}
}

// RegisterRoutes mounts the API on echoServer.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.Healthz)

	api := echoServer.Group("/api/v1",
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOriginFunc: func(_ string) (bool, error) {
				return true, nil
			},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"*"},
			AllowCredentials: true,
		}),
		s.requestContextMiddleware,
		s.authMiddleware,
		middleware.RateLimit(s.RateLimiter, callerKey, s.rejectRateLimited),
	)
	api.POST("/assistant/turn", s.Turn)
	api.POST("/assistant/voice", s.Voice)
	api.GET("/system/metrics", s.GetMetricsOverview)
}

// Healthz reports liveness.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": s.Profile.Version})
}
