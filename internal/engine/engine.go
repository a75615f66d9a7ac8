// Package engine orchestrates enrollment and check-in. It sequences the
// inference capabilities, the liveness gate, the geofence, the cooldown
// tracker and the stores, and owns the policy decisions between them. The
// inference calls may block for a while, so no shared lock is held across
// them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verid/facegate/internal/cooldown"
	"github.com/verid/facegate/internal/geo"
	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/liveness"
	"github.com/verid/facegate/internal/store"
)

// Capability interfaces for the external inference models. The production
// implementation is inference.Client; tests supply deterministic fakes.
type (
	// Detector finds and aligns faces in an image.
	Detector interface {
		DetectFaces(ctx context.Context, image []byte) ([]inference.AlignedFace, error)
	}

	// Embedder computes the recognition embedding for an aligned face crop.
	Embedder interface {
		ExtractEmbedding(ctx context.Context, crop []byte) ([]float32, error)
	}

	// LivenessScorer scores how likely an aligned face crop is a live capture.
	LivenessScorer interface {
		ScoreLiveness(ctx context.Context, crop []byte) (float64, error)
	}
)

// EvidenceStore persists the input image for audit and returns an opaque
// reference for the ledger.
type EvidenceStore interface {
	Save(data []byte, capturedAt time.Time) (string, error)
}

// ErrExtractionFailed reports that the embedding model rejected an aligned
// face crop.
var ErrExtractionFailed = errors.New("embedding extraction failed")

// Config carries the verification policy. It is built once at startup and
// never mutated.
type Config struct {
	MinSimilarity  float64
	Fence          geo.Fence
	CooldownWindow time.Duration
}

// Engine runs the enrollment and check-in pipelines.
type Engine struct {
	cfg       Config
	gate      *liveness.Gate
	templates store.TemplateStore
	ledger    store.AttemptLedger
	cooldown  cooldown.Tracker
	evidence  EvidenceStore
	detector  Detector
	embedder  Embedder
	scorer    LivenessScorer
	now       func() time.Time
}

// New wires an engine from its collaborators.
func New(
	cfg Config,
	gate *liveness.Gate,
	templates store.TemplateStore,
	ledger store.AttemptLedger,
	tracker cooldown.Tracker,
	evidence EvidenceStore,
	detector Detector,
	embedder Embedder,
	scorer LivenessScorer,
) *Engine {
	return &Engine{
		cfg:       cfg,
		gate:      gate,
		templates: templates,
		ledger:    ledger,
		cooldown:  tracker,
		evidence:  evidence,
		detector:  detector,
		embedder:  embedder,
		scorer:    scorer,
		now:       time.Now,
	}
}

// detectSingleFace applies the single-subject policy shared by enrollment
// and check-in: exactly one face, otherwise a reason explaining which way
// the input was ambiguous.
func (e *Engine) detectSingleFace(ctx context.Context, image []byte) (inference.AlignedFace, string, error) {
	faces, err := e.detector.DetectFaces(ctx, image)
	if err != nil {
		return inference.AlignedFace{}, "", fmt.Errorf("detect faces: %w", err)
	}
	switch len(faces) {
	case 0:
		return inference.AlignedFace{}, "no face detected in image", nil
	case 1:
		return faces[0], "", nil
	default:
		return inference.AlignedFace{}, fmt.Sprintf("%d faces detected, expected exactly one", len(faces)), nil
	}
}
