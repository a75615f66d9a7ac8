package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/verid/facegate/internal/engine"
	"github.com/verid/facegate/internal/geo"
	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/store"
)

// CheckinHandler handles check-in submissions.
type CheckinHandler struct {
	pipeline Pipeline
}

// NewCheckinHandler creates a new check-in handler.
func NewCheckinHandler(pipeline Pipeline) *CheckinHandler {
	return &CheckinHandler{pipeline: pipeline}
}

type checkinResponse struct {
	AttemptID      string  `json:"attempt_id"`
	Outcome        string  `json:"outcome"`
	Accepted       bool    `json:"accepted"`
	UserID         string  `json:"user_id,omitempty"`
	Similarity     float64 `json:"similarity"`
	LivenessScore  float64 `json:"liveness_score"`
	DistanceMeters float64 `json:"distance_meters"`
	Reason         string  `json:"reason,omitempty"`
}

// CheckIn handles POST /api/v1/checkin. A rejected attempt is still a
// successfully evaluated request, so rejections come back as 200 with the
// outcome; only malformed input and infrastructure failures use error codes.
func (h *CheckinHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	image, err := readImageFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "latitude is required and must be a number")
		return
	}
	lng, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "longitude is required and must be a number")
		return
	}

	result, err := h.pipeline.CheckIn(r.Context(), engine.CheckInRequest{
		Image:              image,
		Latitude:           lat,
		Longitude:          lng,
		ExpectedIdentityID: r.FormValue("expected_user_id"),
	})
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinates):
		respondError(w, http.StatusBadRequest, "coordinates out of range")
		return
	case errors.Is(err, inference.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "inference server unavailable")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "check-in failed")
		return
	}

	respondJSON(w, http.StatusOK, checkinResponse{
		AttemptID:      result.AttemptID,
		Outcome:        string(result.Outcome),
		Accepted:       result.Outcome == store.OutcomeAccepted,
		UserID:         result.IdentityID,
		Similarity:     result.Similarity,
		LivenessScore:  result.LivenessScore,
		DistanceMeters: result.DistanceMeters,
		Reason:         result.Reason,
	})
}
