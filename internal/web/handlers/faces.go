package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verid/facegate/internal/engine"
	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/store"
)

// FacesHandler handles template enrollment and lifecycle endpoints.
type FacesHandler struct {
	pipeline  Pipeline
	templates store.TemplateStore
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(pipeline Pipeline, templates store.TemplateStore) *FacesHandler {
	return &FacesHandler{pipeline: pipeline, templates: templates}
}

type templateResponse struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTemplateResponse(tpl store.Template) templateResponse {
	return templateResponse{
		UserID:    tpl.IdentityID,
		Name:      tpl.DisplayName,
		CreatedAt: tpl.CreatedAt,
		UpdatedAt: tpl.UpdatedAt,
	}
}

// respondEnroll maps an enrollment result onto a response. Policy rejections
// are 422 so callers can distinguish them from malformed requests.
func respondEnroll(w http.ResponseWriter, userID string, result engine.EnrollResult, created bool) {
	if result.Status != engine.EnrollOK {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"user_id":        userID,
			"status":         result.Status,
			"liveness_score": result.LivenessScore,
			"error":          result.Reason,
		})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]any{
		"user_id":        userID,
		"status":         result.Status,
		"liveness_score": result.LivenessScore,
	})
}

// enrollError maps infrastructure failures from the enrollment pipeline.
func enrollError(w http.ResponseWriter, err error) {
	if errors.Is(err, inference.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "inference server unavailable")
		return
	}
	respondError(w, http.StatusInternalServerError, "enrollment failed")
}

// Enroll handles POST /api/v1/faces.
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	name := r.FormValue("name")

	result, err := h.pipeline.Enroll(r.Context(), userID, name, image)
	if err != nil {
		enrollError(w, err)
		return
	}
	respondEnroll(w, userID, result, true)
}

// Get handles GET /api/v1/faces/{userID}.
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	tpl, err := h.templates.Get(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	respondJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

// Update handles PUT /api/v1/faces/{userID}. A new image re-enrolls through
// the full pipeline; without one only the display name changes.
func (h *FacesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	existing, err := h.templates.Get(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = existing.DisplayName
	}

	if _, _, err := r.FormFile("file"); err == nil {
		image, err := readImageFile(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := h.pipeline.Enroll(r.Context(), userID, name, image)
		if err != nil {
			enrollError(w, err)
			return
		}
		respondEnroll(w, userID, result, false)
		return
	}

	if name == existing.DisplayName {
		respondError(w, http.StatusBadRequest, "nothing to update: provide a file or a new name")
		return
	}
	if err := h.templates.Upsert(r.Context(), userID, name, existing.Embedding); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update template")
		return
	}
	tpl, err := h.templates.Get(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	respondJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

// Delete handles DELETE /api/v1/faces/{userID}.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	err := h.templates.Delete(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/v1/faces?name=. Matching ignores case and
// diacritics.
func (h *FacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	templates, err := h.templates.FindByName(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to search templates")
		return
	}

	results := make([]templateResponse, 0, len(templates))
	for _, tpl := range templates {
		results = append(results, toTemplateResponse(tpl))
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}
