package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/tradepress/pkg/database"
)

// HealthChecker reports database health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// HealthHandler serves /health
type HealthHandler struct {
	db         HealthChecker // optional
	directives int
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db HealthChecker, directiveCount int) *HealthHandler {
	return &HealthHandler{db: db, directives: directiveCount}
}

// Check returns server health status
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":     "ok",
		"service":    "tradepress-api",
		"directives": h.directives,
		"database":   "disabled",
	}

	if h.db == nil {
		respondJSON(w, http.StatusOK, body)
		return
	}

	status, err := h.db.HealthCheck(r.Context())
	if err != nil || !status.Healthy {
		body["status"] = "degraded"
		body["database"] = "unhealthy"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	body["database"] = "ok"
	respondJSON(w, http.StatusOK, body)
}
