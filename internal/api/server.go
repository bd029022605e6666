// Package api serves the REST, webhook and event-stream surfaces over echo.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/stack21/flowengine/internal/service"
	"github.com/stack21/flowengine/internal/streaming"
)

// ServiceName labels the otelecho spans.
const ServiceName = "flowengine"

// Deps holds the dependencies for the API server.
type Deps struct {
	Service *service.WorkflowService
	Hub     streaming.EventHub
	Logger  *slog.Logger
	// Health reports extra status fields for /healthz, e.g. dispatcher counters.
	Health func() map[string]any
}

// Server wraps an echo instance with the flowengine routes.
type Server struct {
	deps Deps
	echo *echo.Echo
	http *http.Server
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(deps.Logger)

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(ServiceName))
	e.Use(requestLogger(deps.Logger))

	s := &Server{deps: deps, echo: e}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/workflows", s.listWorkflows)
	v1.PUT("/workflows", s.putWorkflow)
	v1.GET("/workflows/:id", s.getWorkflow)
	v1.POST("/workflows/:id/execute", s.executeWorkflow)
	v1.GET("/workflows/:id/diagram", s.workflowDiagram)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:id", s.getRun)
	v1.GET("/runs/:id/events", s.runEvents)
	v1.GET("/stream", s.stream)

	s.echo.POST("/webhooks/:workflowId", s.webhook)
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler { return s.echo }

// ListenAndServe serves on addr until ctx is done, then shuts down with a
// grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("api listening", slog.String("addr", addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.deps.Logger.Info("api shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			logger.Debug("http request",
				slog.String("method", req.Method),
				slog.String("path", c.Path()),
				slog.Int("status", c.Response().Status),
				slog.Duration("elapsed", time.Since(start)),
			)
			return nil
		}
	}
}
