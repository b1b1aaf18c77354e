package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryanbastic/go-repopager/internal/metrics"
	"github.com/ryanbastic/go-repopager/internal/session"
	"github.com/ryanbastic/go-repopager/internal/storage"
)

// NewServer creates an HTTP server with all routes configured. backends
// are pinged by the readiness probe.
func NewServer(logger *slog.Logger, sessions *session.Manager, store storage.Store, backends map[string]Pinger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)

	health := NewHealthHandler(backends, logger)
	mux.Get("/v1/livez", health.Livez)
	mux.Get("/v1/readyz", health.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	api := humachi.New(mux, huma.DefaultConfig("repopager", "1.0.0"))
	registerSearchRoutes(api, NewSearchHandler(sessions, logger))
	registerRepoRoutes(api, NewRepoHandler(store, logger))

	return mux
}
