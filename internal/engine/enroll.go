package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/liveness"
)

// EnrollStatus is the terminal state of an enrollment attempt.
type EnrollStatus string

const (
	EnrollOK               EnrollStatus = "OK"
	EnrollNoFace           EnrollStatus = "NO_FACE"
	EnrollLivenessRejected EnrollStatus = "LIVENESS_REJECTED"
	EnrollExtractionFailed EnrollStatus = "EXTRACTION_FAILED"
)

// EnrollResult reports how an enrollment ended. Reason is empty on success.
type EnrollResult struct {
	Status        EnrollStatus
	LivenessScore float64
	Verdict       liveness.Verdict
	Reason        string
}

// Enroll runs the enrollment pipeline for one identity: detect exactly one
// face, require a REAL liveness verdict, extract the embedding and store it.
// The template upsert is the final step, so a rejection at any earlier stage
// leaves no partial state behind. An error return means an infrastructure
// failure, not a policy rejection.
func (e *Engine) Enroll(ctx context.Context, identityID, displayName string, image []byte) (EnrollResult, error) {
	face, rejectReason, err := e.detectSingleFace(ctx, image)
	if err != nil {
		return EnrollResult{}, err
	}
	if rejectReason != "" {
		return EnrollResult{Status: EnrollNoFace, Reason: rejectReason}, nil
	}

	score, err := e.scorer.ScoreLiveness(ctx, face.Crop)
	if err != nil {
		return EnrollResult{}, fmt.Errorf("score liveness: %w", err)
	}
	verdict := e.gate.Classify(score)
	if verdict != liveness.VerdictReal {
		return EnrollResult{
			Status:        EnrollLivenessRejected,
			LivenessScore: score,
			Verdict:       verdict,
			Reason:        fmt.Sprintf("liveness check failed: verdict %s (score %.2f)", verdict, score),
		}, nil
	}

	embedding, err := e.embedder.ExtractEmbedding(ctx, face.Crop)
	if err != nil {
		if errors.Is(err, inference.ErrUnavailable) {
			return EnrollResult{}, fmt.Errorf("extract embedding: %w", err)
		}
		return EnrollResult{
			Status:        EnrollExtractionFailed,
			LivenessScore: score,
			Verdict:       verdict,
			Reason:        "embedding extraction failed",
		}, nil
	}

	if err := e.templates.Upsert(ctx, identityID, displayName, embedding); err != nil {
		return EnrollResult{}, fmt.Errorf("store template: %w", err)
	}

	return EnrollResult{Status: EnrollOK, LivenessScore: score, Verdict: verdict}, nil
}
