package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/liveness"
)

// LivenessScorer scores how likely an aligned face crop is a live capture.
type LivenessScorer interface {
	ScoreLiveness(ctx context.Context, crop []byte) (float64, error)
}

// LivenessHandler exposes the anti-spoofing check on its own, so a kiosk can
// probe a frame before submitting a full check-in.
type LivenessHandler struct {
	detector FaceDetector
	scorer   LivenessScorer
	gate     *liveness.Gate
}

// NewLivenessHandler creates a new liveness handler.
func NewLivenessHandler(detector FaceDetector, scorer LivenessScorer, gate *liveness.Gate) *LivenessHandler {
	return &LivenessHandler{detector: detector, scorer: scorer, gate: gate}
}

// Score handles POST /api/v1/liveness. The frame must contain exactly one
// face; the verdict uses the same gate thresholds as enrollment and check-in.
func (h *LivenessHandler) Score(w http.ResponseWriter, r *http.Request) {
	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	faces, err := h.detector.DetectFaces(r.Context(), image)
	if errors.Is(err, inference.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "inference server unavailable")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "face detection failed")
		return
	}
	switch {
	case len(faces) == 0:
		respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
		return
	case len(faces) > 1:
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("%d faces detected, expected exactly one", len(faces)))
		return
	}

	score, err := h.scorer.ScoreLiveness(r.Context(), faces[0].Crop)
	if errors.Is(err, inference.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "inference server unavailable")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "liveness scoring failed")
		return
	}

	verdict := h.gate.Classify(score)
	respondJSON(w, http.StatusOK, map[string]any{
		"liveness_score": score,
		"verdict":        verdict,
		"is_live":        verdict == liveness.VerdictReal,
	})
}
