package v1

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/server/auth"
	aierrors "github.com/hrygo/coworkr/server/internal/errors"
	"github.com/hrygo/coworkr/server/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// errorResponse is the body of a rejected request. It keeps the turn shape so
// clients can always show replyText.
type errorResponse struct {
	ReplyText string   `json:"replyText"`
	Intent    string   `json:"intent"`
	Actions   []string `json:"actionsTaken"`
	Error     string   `json:"error"`
}

func (s *APIV1Service) requestContextMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rc := observability.NewRequestContextWithID(slog.Default(), req.Header.Get(requestIDHeader), channelOf(c.Path()), "")
		c.Response().Header().Set(requestIDHeader, rc.RequestID)
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))
		return next(c)
	}
}

func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var caller string
		if s.Authenticator.DevMode() {
			caller = strings.TrimSpace(req.Header.Get(auth.DevCallerHeader))
		} else {
			claims, err := s.Authenticator.Authenticate(req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				s.Metrics.RecordUnauthorized()
				return s.fail(c, aierrors.Wrap(err, aierrors.ErrCodeUnauthorized, "authentication failed"))
			}
			caller = claims.Subject
		}
		if caller == "" {
			s.Metrics.RecordUnauthorized()
			return s.fail(c, aierrors.Unauthorized("no caller identity"))
		}

		ctx := auth.WithCaller(req.Context(), caller)
		if rc, ok := observability.FromContext(ctx); ok {
			rc.CallerID = caller
		}
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (s *APIV1Service) rejectRateLimited(c echo.Context) error {
	s.Metrics.RecordRateLimited()
	return s.fail(c, aierrors.RateLimitExceeded("too many requests"))
}

// fail logs err and writes its conversational reply with the mapped status.
func (s *APIV1Service) fail(c echo.Context, err *aierrors.AIError) error {
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		rc.Warn("request rejected",
			slog.String(observability.LogFieldErrorCode, string(err.Code)),
			slog.String("error", err.Error()),
			slog.Int64(observability.LogFieldLatency, rc.DurationMs()),
		)
	}
	return c.JSON(err.Status(), errorResponse{
		ReplyText: err.Reply(),
		Intent:    string(router.IntentGeneralChat),
		Actions:   []string{},
		Error:     string(err.Code),
	})
}

func callerKey(c echo.Context) string {
	caller, _ := auth.CallerFromContext(c.Request().Context())
	return caller
}

func channelOf(path string) string {
	switch {
	case strings.HasSuffix(path, "/voice"):
		return "voice"
	case strings.HasSuffix(path, "/turn"):
		return "text"
	default:
		return "api"
	}
}
