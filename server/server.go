package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/vibetunes/vibetunes-backend/config"
	"github.com/vibetunes/vibetunes-backend/orchestrator"
)

// Version is reported by the health and index endpoints.
const Version = "1.0.0"

type detector interface {
	Detect(ctx context.Context, requestID string, req orchestrator.DetectRequest) (*orchestrator.Detection, error)
	Configured() bool
}

type Server struct {
	echo     *echo.Echo
	config   *config.Root
	detector detector
	registry *prometheus.Registry
	log      logrus.FieldLogger

	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg *config.Root, d detector, reg *prometheus.Registry, clock clockwork.Clock, log logrus.FieldLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:      e,
		config:    cfg,
		detector:  d,
		registry:  reg,
		log:       log,
		clock:     clock,
		startTime: clock.Now(),
	}
	e.HTTPErrorHandler = srv.handleError

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	s.log.WithFields(logrus.Fields{
		"port":          s.config.Server.Port,
		"models":        len(s.config.HuggingFace.Models),
		"hf_configured": s.detector.Configured(),
	}).Info("VibeTunes backend starting")
	if !s.detector.Configured() {
		s.log.Warn("HF_TOKEN not found in environment variables, detection requests will fail")
	}
	if err := s.echo.Start(":" + s.config.Server.Port); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets the server be driven directly by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
