package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/verid/facegate/internal/inference"
)

// FaceDetector finds faces in an image.
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) ([]inference.AlignedFace, error)
}

// DetectHandler exposes detection without enrollment or matching, for kiosk
// camera framing.
type DetectHandler struct {
	detector FaceDetector
}

// NewDetectHandler creates a new detect handler.
func NewDetectHandler(detector FaceDetector) *DetectHandler {
	return &DetectHandler{detector: detector}
}

type detectedFace struct {
	BBox       []float64 `json:"bbox"`
	Landmarks  []float64 `json:"landmarks"`
	Confidence float64   `json:"confidence"`
}

// Detect handles POST /api/v1/detect. Face crops stay server-side; only
// geometry and confidence go back to the caller.
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
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

	results := make([]detectedFace, 0, len(faces))
	for _, f := range faces {
		results = append(results, detectedFace{
			BBox:       f.BBox,
			Landmarks:  f.Landmarks,
			Confidence: f.Confidence,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"faces_count": len(results),
		"faces":       results,
	})
}
