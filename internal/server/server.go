// Package server exposes the agent's operational surface over HTTP: a
// liveness probe, a status snapshot, and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
	"github.com/yannabadie/appia-dev/internal/router"
)

// StatusSource reports the agent's progress.
type StatusSource interface {
	Completed() int
}

// ReviewSource reports whether the escalation governor has suspended the
// agent.
type ReviewSource interface {
	WaitingForHumanReview() bool
}

// HistorySource exposes recent model performance records.
type HistorySource interface {
	Recent(n int) []router.PerformanceRecord
}

// Server wraps the echo instance and its collaborators.
type Server struct {
	cfg     config.ServerConfig
	echo    *echo.Echo
	status  StatusSource
	review  ReviewSource
	history HistorySource
	logger  *zap.Logger
}

// New builds the HTTP server. Any collaborator may be nil; the corresponding
// status field then reports a zero value.
func New(cfg config.ServerConfig, status StatusSource, review ReviewSource, history HistorySource, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		cfg:     cfg,
		echo:    e,
		status:  status,
		review:  review,
		history: history,
		logger:  logger,
	}

	e.GET("/healthz", s.handleHealthz)
	e.GET("/status", s.handleStatus)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("http server listening", zap.String("addr", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	CyclesCompleted       int               `json:"cycles_completed"`
	WaitingForHumanReview bool              `json:"waiting_for_human_review"`
	RecentPerformance     []performanceView `json:"recent_performance"`
	Timestamp             time.Time         `json:"timestamp"`
}

type performanceView struct {
	Model     string  `json:"model"`
	TaskType  string  `json:"task_type"`
	Success   float64 `json:"success"`
	LatencyMS int64   `json:"latency_ms"`
	Cost      float64 `json:"cost"`
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{
		RecentPerformance: []performanceView{},
		Timestamp:         time.Now().UTC(),
	}
	if s.status != nil {
		resp.CyclesCompleted = s.status.Completed()
	}
	if s.review != nil {
		resp.WaitingForHumanReview = s.review.WaitingForHumanReview()
	}
	if s.history != nil {
		for _, rec := range s.history.Recent(10) {
			resp.RecentPerformance = append(resp.RecentPerformance, performanceView{
				Model:     rec.Model,
				TaskType:  string(rec.TaskType),
				Success:   rec.Success,
				LatencyMS: rec.Latency.Milliseconds(),
				Cost:      rec.Cost,
			})
		}
	}
	return c.JSON(http.StatusOK, resp)
}
