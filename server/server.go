// Package server wires the HTTP surface: echo instance, middleware, health
// and metrics endpoints, and the v1 API routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/metrics"
	"github.com/EscobozaEstrada/mrwhite-sub002/internal/profile"
	apiv1 "github.com/EscobozaEstrada/mrwhite-sub002/server/router/api/v1"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

type Server struct {
	echoServer *echo.Echo

	Profile *profile.Profile
	// Store is nil when running on the in-memory driver (demo mode).
	Store *store.Store

	apiV1Service *apiv1.APIV1Service
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(ctx context.Context, profile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(requestLogger())

	collector := metrics.NewCollector()

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(collector.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(profile.Secret, profile, storeInstance, collector)
	apiV1Service.RegisterRoutes(echoServer)

	server := &Server{
		echoServer:   echoServer,
		Profile:      profile,
		Store:        storeInstance,
		apiV1Service: apiV1Service,
	}

	return server, nil
}

// Start binds the listener and serves in the background. Bind failures are
// returned synchronously; serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	var listener net.Listener
	var err error
	if s.Profile.UNIXSock != "" {
		listener, err = net.Listen("unix", s.Profile.UNIXSock)
	} else {
		listener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port))
	}
	if err != nil {
		return errors.Wrap(err, "failed to bind listener")
	}

	s.echoServer.Listener = listener
	go func() {
		if err := s.echoServer.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to serve", "error", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}

	slog.Info("server stopped")
}

// requestLogger logs one line per request through slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Warn("request", attrs...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	})
}
