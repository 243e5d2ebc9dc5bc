package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/bloomgate-go/internal/registry"
	"github.com/yndnr/bloomgate-go/internal/storage"
	"github.com/yndnr/bloomgate-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the admin HTTP router.
type RouterConfig struct {
	// Registry is the filter registry to report on.
	Registry *registry.Registry

	// Engine is the storage engine, for snapshot inventory.
	Engine *storage.Engine

	// Metrics serves the /metrics endpoint; nil disables it.
	Metrics *metric.Metrics

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates the admin HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := NewHandler(cfg.Registry, cfg.Engine, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /v1/filters", h.handleFilters)
	mux.HandleFunc("GET /v1/filters/{name}", h.handleFilter)
	mux.HandleFunc("GET /v1/snapshots", h.handleSnapshots)
	mux.HandleFunc("GET /v1/buildinfo", h.handleBuildInfo)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	return Chain(mux, Recover(logger), RequestID(), Logging(logger))
}
