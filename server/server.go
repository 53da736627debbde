// Package server runs the coworkr HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/coworkr/internal/profile"
	apiv1 "github.com/hrygo/coworkr/server/router/api/v1"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = 30 * time.Minute
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
	listener   net.Listener

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewServer wires the API onto a fresh echo instance.
func NewServer(profile *profile.Profile, svc apiv1.AssistantService, dispatch apiv1.DispatchStats) *Server {
	echoServer := echo.New()
	echoServer.Debug = true
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())

	apiV1 := apiv1.NewAPIV1Service(profile, svc, dispatch)
	apiV1.RegisterRoutes(echoServer)

	return &Server{
		Profile:    profile,
		echoServer: echoServer,
		apiV1:      apiV1,
		stop:       make(chan struct{}),
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	s.listener = listener
	s.echoServer.Listener = listener

	s.wg.Add(1)
	go s.sweepLimiter()

	go func() {
		if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("coworkr server started", "addr", listener.Addr().String(), "mode", s.Profile.Mode)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the HTTP server and background jobs.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	s.wg.Wait()
	slog.Info("coworkr server stopped")
}

func (s *Server) sweepLimiter() {
	defer s.wg.Done()
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.apiV1.RateLimiter.Evict(limiterIdleTTL); n > 0 {
				slog.Debug("evicted idle rate limit buckets", "count", n)
			}
		}
	}
}
