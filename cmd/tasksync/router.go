package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/tasksync/internal/redact"
)

// readinessTimeout bounds the whole set of readiness checks.
const readinessTimeout = 2 * time.Second

// readinessCheck is one dependency reported by /readiness.
type readinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// connectedCheck adapts a Connected method to a readiness check.
func connectedCheck(connected func() bool, errDown error) func(context.Context) error {
	return func(context.Context) error {
		if !connected() {
			return errDown
		}
		return nil
	}
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// newRouter creates the ops router: liveness, readiness over checks, and
// Prometheus metrics from registry.
func newRouter(logger *slog.Logger, registry *prometheus.Registry, checks ...readinessCheck) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logger.Error("Failed to write health check response", "error", err)
		}
	})

	r.Get("/readiness", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := readinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK

		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Checks[c.Name] = redact.Error(err)
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}

		if status != http.StatusOK {
			logger.Warn("readiness check failed", "checks", resp.Checks)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to write readiness response", "error", err)
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}
