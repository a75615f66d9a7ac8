package store

import "time"

// EmbeddingDim is the fixed length of face embeddings produced by the
// recognition model (ArcFace-style, 512 floats).
const EmbeddingDim = 512

// Template is the single enrolled biometric template for an identity.
// There is at most one template per identity id; re-enrollment replaces the
// embedding in place and bumps UpdatedAt.
type Template struct {
	IdentityID     string
	DisplayName    string
	NormalizedName string // DisplayName lowercased, diacritics stripped; used for name search
	Embedding      []float32
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Outcome is the terminal result of a check-in attempt.
type Outcome string

const (
	OutcomeAccepted         Outcome = "ACCEPTED"
	OutcomeRejectedLiveness Outcome = "REJECTED_LIVENESS"
	OutcomeRejectedNoMatch  Outcome = "REJECTED_NO_MATCH"
	OutcomeRejectedGeofence Outcome = "REJECTED_GEOFENCE"
	OutcomeRejectedCooldown Outcome = "REJECTED_COOLDOWN"
	OutcomeRejectedNoFace   Outcome = "REJECTED_NO_FACE"
)

// Attempt is one check-in attempt, accepted or rejected. Every attempt is
// recorded in the ledger exactly once and is never mutated afterwards.
type Attempt struct {
	AttemptID      string  // UUIDv7, time-ordered
	IdentityID     string  // resolved match; empty when no match was found
	Similarity     float64 // cosine similarity against the matched template
	LivenessScore  float64
	Latitude       float64
	Longitude      float64
	DistanceMeters float64
	Outcome        Outcome
	Reason         string // human-readable rejection reason, empty on accept
	EvidenceRef    string // reference to the stored input image
	Timestamp      time.Time
}

// Match is a nearest-neighbor result from the template store.
type Match struct {
	IdentityID string
	Similarity float64
}
