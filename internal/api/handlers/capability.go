package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/tradepress/internal/capability"
	"github.com/wonny/tradepress/pkg/logger"
)

// CapabilityHandler exposes the provider capability matrix
type CapabilityHandler struct {
	service *capability.Service
	logger  *logger.Logger
}

// NewCapabilityHandler creates a new capability handler
func NewCapabilityHandler(service *capability.Service, log *logger.Logger) *CapabilityHandler {
	return &CapabilityHandler{
		service: service,
		logger:  log.WithComponent("capability_api"),
	}
}

// Matrix returns the full capability matrix
// GET /api/capabilities
func (h *CapabilityHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Matrix(r.Context()))
}

// Status returns the cache status of the matrix
// GET /api/capabilities/status
func (h *CapabilityHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.service.CacheStatus(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cached":       status.Cached,
		"last_updated": status.LastUpdated,
		"expires":      status.Expires,
		"ttl_seconds":  int(h.service.TTL().Seconds()),
	})
}

// DataType returns the providers and freshness requirement of one data type
// GET /api/capabilities/data-types/{type}
func (h *CapabilityHandler) DataType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dataType := mux.Vars(r)["type"]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data_type":         dataType,
		"platforms":         h.service.PlatformsForDataType(ctx, dataType),
		"freshness_seconds": int(h.service.FreshnessRequirement(ctx, dataType).Seconds()),
	})
}

// Supports reports whether a provider supplies a data type
// GET /api/capabilities/platforms/{platform}/supports/{type}
func (h *CapabilityHandler) Supports(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"platform":  vars["platform"],
		"data_type": vars["type"],
		"supported": h.service.PlatformSupports(r.Context(), vars["platform"], vars["type"]),
	})
}

// Invalidate drops the cached matrix
// DELETE /api/capabilities/cache
func (h *CapabilityHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to invalidate capability cache")
		respondError(w, http.StatusInternalServerError, "Failed to invalidate capability cache")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// Refresh rebuilds and re-caches the matrix
// POST /api/capabilities/refresh
func (h *CapabilityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to refresh capability matrix")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, matrix)
}
