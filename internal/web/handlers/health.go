package handlers

import (
	"context"
	"net/http"

	"github.com/verid/facegate/internal/store"
)

// HealthChecker reports whether the inference server is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports service and model availability.
type HealthHandler struct {
	inference HealthChecker
	templates store.TemplateStore
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(inference HealthChecker, templates store.TemplateStore) *HealthHandler {
	return &HealthHandler{inference: inference, templates: templates}
}

// Check handles GET /api/v1/health. The service stays up when the inference
// server is down, so the response degrades instead of failing.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	inferenceStatus := "ok"
	if err := h.inference.Health(r.Context()); err != nil {
		status = "degraded"
		inferenceStatus = "unavailable"
	}

	count, err := h.templates.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count enrolled identities")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"inference":      inferenceStatus,
		"enrolled_count": count,
	})
}
