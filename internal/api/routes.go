package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/profilebot/internal/monitoring"
	"github.com/ignite/profilebot/internal/pkg/httputil"
)

// SetupRoutes builds the status router.
func SetupRoutes(metrics *monitoring.Metrics, health *HealthChecker) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.NotFound(httputil.NotFound)
	r.MethodNotAllowed(httputil.MethodNotAllowed)

	r.Get("/healthz", health.HandleHealth)
	r.Get("/healthz/live", health.HandleLiveness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/stats", handleStats(metrics))
	return r
}
