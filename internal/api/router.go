package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/PayLens/internal/config"
	"github.com/MikeSquared-Agency/PayLens/internal/service"
	"github.com/MikeSquared-Agency/PayLens/internal/solver"
)

// NewRouter serves the reconciliation API. backend answers raw model
// solves for remote PayLens clients.
func NewRouter(svc *service.Service, backend solver.Backend, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	maxBytes := int64(cfg.Server.MaxUploadMB) << 20
	solve := NewSolveHandler(svc, maxBytes)
	batch := NewBatchHandler(svc, maxBytes)
	models := NewModelsHandler(backend, cfg.DefaultTimeLimit(), cfg.Solver.Workers, maxBytes)
	artifacts := NewArtifactsHandler(svc.Store())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", solve.Solve)
		r.Post("/batch", batch.Run)

		r.Get("/artifacts", artifacts.List)
		r.Get("/artifacts/{id}", artifacts.Get)
		r.Get("/artifacts/{id}/content", artifacts.Content)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Post("/models/solve", models.Solve)
		})
	})

	return r
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker func(r *http.Request) error

func NewMetricsRouter(metrics http.Handler, checks map[string]HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		writeJSON(w, status, body)
	})
	r.Handle("/metrics", metrics)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
