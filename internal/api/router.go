package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Frontier/internal/optimizer"
	"github.com/MikeSquared-Agency/Frontier/internal/store"
)

func NewRouter(m *optimizer.Manager, s store.Store, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(600))

	runs := NewRunsHandler(m, logger)
	admin := NewAdminHandler(s, m)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(DriverIDMiddleware)

		r.Post("/runs", runs.Create)
		r.Get("/runs", runs.List)
		r.Get("/runs/{id}", runs.Get)
		r.Post("/runs/{id}/close", runs.Close)

		r.Post("/runs/{id}/plans", runs.Ingest)
		r.Get("/runs/{id}/plans", runs.Plans)
		r.Get("/runs/{id}/plans/{plan_id}/frontier", runs.PlanFrontier)
		r.Get("/runs/{id}/plans/{plan_id}/dominators", runs.Dominators)
		r.Get("/runs/{id}/frontier", runs.Frontier)
		r.Get("/runs/{id}/actions", runs.Actions)
		r.Get("/runs/{id}/plot", runs.Plot)
		r.Get("/runs/{id}/select", runs.Select)
		r.Get("/runs/{id}/tree", runs.Tree)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

// NewMetricsRouter serves health and the metrics in gatherer.
func NewMetricsRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
