package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/liveness"
	"github.com/verid/facegate/internal/store"
)

// CheckInRequest is one check-in submission.
type CheckInRequest struct {
	Image     []byte
	Latitude  float64
	Longitude float64

	// ExpectedIdentityID, when set, narrows acceptance: a match resolving to
	// a different identity is treated as no match, never as a success.
	ExpectedIdentityID string
}

// CheckInResult mirrors the ledger record for the attempt.
type CheckInResult struct {
	AttemptID      string
	Outcome        store.Outcome
	IdentityID     string
	Similarity     float64
	LivenessScore  float64
	DistanceMeters float64
	EvidenceRef    string
	Reason         string
}

// CheckIn runs the check-in pipeline: geofence, detection, liveness,
// nearest-neighbor match, cooldown, then the ledger. Geofence goes first
// because it rejects out-of-policy requests before any inference cost is
// spent. Every attempt that reaches the pipeline writes exactly one ledger
// record, rejections included; an error return means the attempt could not
// be evaluated at all and nothing was recorded.
func (e *Engine) CheckIn(ctx context.Context, req CheckInRequest) (CheckInResult, error) {
	now := e.now()

	inside, distance, err := e.cfg.Fence.Check(req.Latitude, req.Longitude)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("validate coordinates: %w", err)
	}

	attempt := store.Attempt{
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DistanceMeters: distance,
		Timestamp:      now,
	}

	if !inside {
		attempt.Outcome = store.OutcomeRejectedGeofence
		attempt.Reason = fmt.Sprintf("location %.1fm from site, limit %.1fm", distance, e.cfg.Fence.MaxDistanceMeters)
		return e.finish(ctx, req, attempt)
	}

	face, rejectReason, err := e.detectSingleFace(ctx, req.Image)
	if err != nil {
		return CheckInResult{}, err
	}
	if rejectReason != "" {
		attempt.Outcome = store.OutcomeRejectedNoFace
		attempt.Reason = rejectReason
		return e.finish(ctx, req, attempt)
	}

	score, err := e.scorer.ScoreLiveness(ctx, face.Crop)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("score liveness: %w", err)
	}
	attempt.LivenessScore = score

	if verdict := e.gate.Classify(score); verdict != liveness.VerdictReal {
		attempt.Outcome = store.OutcomeRejectedLiveness
		attempt.Reason = fmt.Sprintf("liveness check failed: verdict %s (score %.2f)", verdict, score)
		return e.finish(ctx, req, attempt)
	}

	embedding, err := e.embedder.ExtractEmbedding(ctx, face.Crop)
	if err != nil {
		if errors.Is(err, inference.ErrUnavailable) {
			return CheckInResult{}, fmt.Errorf("extract embedding: %w", err)
		}
		return CheckInResult{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	match, err := e.templates.NearestNeighbor(ctx, embedding, e.cfg.MinSimilarity)
	if errors.Is(err, store.ErrNoMatch) {
		attempt.Outcome = store.OutcomeRejectedNoMatch
		attempt.Reason = "no enrolled identity matched"
		return e.finish(ctx, req, attempt)
	}
	if err != nil {
		return CheckInResult{}, fmt.Errorf("nearest neighbor: %w", err)
	}

	if req.ExpectedIdentityID != "" && match.IdentityID != req.ExpectedIdentityID {
		// The matched identity stays out of the record so a caller hint can
		// never widen acceptance or leak who else matched.
		attempt.Outcome = store.OutcomeRejectedNoMatch
		attempt.Similarity = match.Similarity
		attempt.Reason = "matched identity differs from expected identity"
		return e.finish(ctx, req, attempt)
	}

	attempt.IdentityID = match.IdentityID
	attempt.Similarity = match.Similarity

	admitted, err := e.cooldown.TryAcquire(ctx, match.IdentityID, now, e.cfg.CooldownWindow)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("cooldown check: %w", err)
	}
	if !admitted {
		attempt.Outcome = store.OutcomeRejectedCooldown
		attempt.Reason = fmt.Sprintf("already checked in within the last %s", e.cfg.CooldownWindow)
		return e.finish(ctx, req, attempt)
	}

	attempt.Outcome = store.OutcomeAccepted
	return e.finish(ctx, req, attempt)
}

// finish stamps the attempt, persists evidence and appends the ledger
// record. A failed evidence write degrades to an empty reference rather than
// losing the ledger entry; a failed append is a storage failure the caller
// must see.
func (e *Engine) finish(ctx context.Context, req CheckInRequest, attempt store.Attempt) (CheckInResult, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return CheckInResult{}, fmt.Errorf("generate attempt id: %w", err)
	}
	attempt.AttemptID = id.String()

	ref, err := e.evidence.Save(req.Image, attempt.Timestamp)
	if err != nil {
		log.Printf("evidence save failed for attempt %s: %v", attempt.AttemptID, err)
	} else {
		attempt.EvidenceRef = ref
	}

	if err := e.ledger.Append(ctx, attempt); err != nil {
		if attempt.Outcome == store.OutcomeAccepted {
			// Return the cooldown slot, otherwise a retry after this storage
			// failure would be rejected for the rest of the window.
			if relErr := e.cooldown.Release(ctx, attempt.IdentityID); relErr != nil {
				log.Printf("cooldown release failed for attempt %s: %v", attempt.AttemptID, relErr)
			}
		}
		return CheckInResult{}, fmt.Errorf("append attempt: %w", err)
	}

	return CheckInResult{
		AttemptID:      attempt.AttemptID,
		Outcome:        attempt.Outcome,
		IdentityID:     attempt.IdentityID,
		Similarity:     attempt.Similarity,
		LivenessScore:  attempt.LivenessScore,
		DistanceMeters: attempt.DistanceMeters,
		EvidenceRef:    attempt.EvidenceRef,
		Reason:         attempt.Reason,
	}, nil
}
