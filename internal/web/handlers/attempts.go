package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/verid/facegate/internal/store"
)

const (
	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

// AttemptsHandler exposes the check-in ledger for audit.
type AttemptsHandler struct {
	ledger store.AttemptLedger
}

// NewAttemptsHandler creates a new attempts handler.
func NewAttemptsHandler(ledger store.AttemptLedger) *AttemptsHandler {
	return &AttemptsHandler{ledger: ledger}
}

type attemptResponse struct {
	AttemptID      string    `json:"attempt_id"`
	UserID         string    `json:"user_id,omitempty"`
	Similarity     float64   `json:"similarity"`
	LivenessScore  float64   `json:"liveness_score"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters float64   `json:"distance_meters"`
	Outcome        string    `json:"outcome"`
	Reason         string    `json:"reason,omitempty"`
	EvidenceRef    string    `json:"evidence_ref,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// List handles GET /api/v1/attempts with optional user_id and limit query
// parameters, newest first.
func (h *AttemptsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultAttemptLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxAttemptLimit {
			n = maxAttemptLimit
		}
		limit = n
	}

	var attempts []store.Attempt
	var err error
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		attempts, err = h.ledger.ListByIdentity(r.Context(), userID, limit)
	} else {
		attempts, err = h.ledger.ListRecent(r.Context(), limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}

	results := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		results = append(results, attemptResponse{
			AttemptID:      a.AttemptID,
			UserID:         a.IdentityID,
			Similarity:     a.Similarity,
			LivenessScore:  a.LivenessScore,
			Latitude:       a.Latitude,
			Longitude:      a.Longitude,
			DistanceMeters: a.DistanceMeters,
			Outcome:        string(a.Outcome),
			Reason:         a.Reason,
			EvidenceRef:    a.EvidenceRef,
			Timestamp:      a.Timestamp,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"attempts": results})
}
