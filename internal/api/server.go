// Package api serves the bot's status endpoints: health, Prometheus metrics
// and a JSON counter snapshot.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/profilebot/internal/config"
	"github.com/ignite/profilebot/internal/monitoring"
)

// Server is the status HTTP server.
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer wires the routes.
func NewServer(cfg config.ServerConfig, metrics *monitoring.Metrics, health *HealthChecker) *Server {
	return &Server{
		config:  cfg,
		handler: SetupRoutes(metrics, health),
	}
}

// ListenAndServe blocks until the server stops. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
