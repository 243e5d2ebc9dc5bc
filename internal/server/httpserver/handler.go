package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/bloomgate-go/internal/core/domain"
	"github.com/yndnr/bloomgate-go/internal/infra/buildinfo"
	"github.com/yndnr/bloomgate-go/internal/registry"
	"github.com/yndnr/bloomgate-go/internal/storage"
)

// Handler serves the read-only admin endpoints.
type Handler struct {
	registry *registry.Registry
	engine   *storage.Engine
	logger   *slog.Logger
}

// NewHandler creates the admin handler.
func NewHandler(reg *registry.Registry, engine *storage.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: reg, engine: engine, logger: logger}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write json response failed", "error", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleFilters lists every filter's parameters and counters.
func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	filters := h.registry.List()
	infos := make([]domain.Info, 0, len(filters))
	for _, f := range filters {
		infos = append(infos, f.Info())
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(infos),
		"filters": infos,
	})
}

// handleFilter returns one filter's info, 404 when it is not registered.
func (h *Handler) handleFilter(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	f, err := h.registry.Get(name)
	if err != nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{
			"code":    domain.GetErrorCode(err),
			"message": "filter not found",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, f.Info())
}

// handleSnapshots lists the snapshot files on disk.
func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.engine.Snapshots()
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"code":    domain.ErrSnapshotIO.Code,
			"message": err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(infos),
		"snapshots": infos,
	})
}

func (h *Handler) handleBuildInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, buildinfo.Get())
}
