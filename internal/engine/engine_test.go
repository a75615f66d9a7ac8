package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	cooldownmem "github.com/verid/facegate/internal/cooldown/memory"
	"github.com/verid/facegate/internal/geo"
	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/liveness"
	"github.com/verid/facegate/internal/store"
	storemem "github.com/verid/facegate/internal/store/memory"
)

// fakeInference scripts the three model capabilities deterministically.
type fakeInference struct {
	faces         int
	livenessScore float64
	embedding     []float32

	detectErr error
	scoreErr  error
	embedErr  error
}

func (f *fakeInference) DetectFaces(_ context.Context, _ []byte) ([]inference.AlignedFace, error) {
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	faces := make([]inference.AlignedFace, f.faces)
	for i := range faces {
		faces[i] = inference.AlignedFace{Crop: []byte("crop"), Confidence: 0.95}
	}
	return faces, nil
}

func (f *fakeInference) ScoreLiveness(_ context.Context, _ []byte) (float64, error) {
	if f.scoreErr != nil {
		return 0, f.scoreErr
	}
	return f.livenessScore, nil
}

func (f *fakeInference) ExtractEmbedding(_ context.Context, _ []byte) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.embedding, nil
}

type fakeEvidence struct {
	ref string
	err error
}

func (f *fakeEvidence) Save(_ []byte, _ time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.ref, nil
}

// testEmbedding builds a unit-length vector in the plane of the first two
// dimensions, so cosine similarities are exact by construction.
func testEmbedding(x, y float64) []float32 {
	norm := math.Sqrt(x*x + y*y)
	emb := make([]float32, store.EmbeddingDim)
	emb[0] = float32(x / norm)
	emb[1] = float32(y / norm)
	return emb
}

// embeddingAtSimilarity returns a unit vector whose cosine similarity to
// testEmbedding(1, 0) is exactly sim.
func embeddingAtSimilarity(sim float64) []float32 {
	return testEmbedding(sim, math.Sqrt(1-sim*sim))
}

const (
	anchorLat = 50.0
	anchorLng = 14.0
	// 1 degree of latitude is about 111195 meters on the haversine sphere.
	degreesPerMeter = 1.0 / 111195.0
)

type fixture struct {
	engine    *Engine
	inf       *fakeInference
	evidence  *fakeEvidence
	templates *storemem.TemplateStore
	ledger    *storemem.AttemptLedger
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gate, err := liveness.NewGate(0.3, 0.7)
	if err != nil {
		t.Fatalf("Failed to create gate: %v", err)
	}

	f := &fixture{
		inf:       &fakeInference{faces: 1, livenessScore: 0.92, embedding: embeddingAtSimilarity(0.89)},
		evidence:  &fakeEvidence{ref: "2026/03/14/abc.jpg"},
		templates: storemem.NewTemplateStore(),
		ledger:    storemem.NewAttemptLedger(),
		clock:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}

	f.engine = New(
		Config{
			MinSimilarity:  0.5,
			Fence:          geo.Fence{AnchorLat: anchorLat, AnchorLng: anchorLng, MaxDistanceMeters: 1000},
			CooldownWindow: 5 * time.Minute,
		},
		gate,
		f.templates,
		f.ledger,
		cooldownmem.NewTracker(),
		f.evidence,
		f.inf,
		f.inf,
		f.inf,
	)
	f.engine.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) enrollUser123(t *testing.T) {
	t.Helper()
	if err := f.templates.Upsert(context.Background(), "user123", "User One", testEmbedding(1, 0)); err != nil {
		t.Fatalf("Failed to enroll user123: %v", err)
	}
}

// checkInAt submits a check-in from a point the given distance north of the
// anchor.
func (f *fixture) checkInAt(t *testing.T, distanceMeters float64) CheckInResult {
	t.Helper()
	result, err := f.engine.CheckIn(context.Background(), CheckInRequest{
		Image:     []byte("frame"),
		Latitude:  anchorLat + distanceMeters*degreesPerMeter,
		Longitude: anchorLng,
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	return result
}

func TestEnrollSuccess(t *testing.T) {
	f := newFixture(t)
	f.inf.livenessScore = 0.85

	result, err := f.engine.Enroll(context.Background(), "user123", "User One", []byte("frame"))
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if result.Status != EnrollOK {
		t.Fatalf("Expected EnrollOK, got %s (%s)", result.Status, result.Reason)
	}
	if result.LivenessScore != 0.85 {
		t.Errorf("Expected liveness score 0.85, got %f", result.LivenessScore)
	}

	tpl, err := f.templates.Get(context.Background(), "user123")
	if err != nil {
		t.Fatalf("Template not stored: %v", err)
	}
	if tpl.DisplayName != "User One" {
		t.Errorf("Expected display name 'User One', got '%s'", tpl.DisplayName)
	}
}

func TestEnrollRejectsFaceCount(t *testing.T) {
	tests := []struct {
		name  string
		faces int
	}{
		{"no face", 0},
		{"two faces", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.inf.faces = tc.faces

			result, err := f.engine.Enroll(context.Background(), "user123", "User One", []byte("frame"))
			if err != nil {
				t.Fatalf("Enroll failed: %v", err)
			}
			if result.Status != EnrollNoFace {
				t.Errorf("Expected EnrollNoFace, got %s", result.Status)
			}
			if _, err := f.templates.Get(context.Background(), "user123"); !errors.Is(err, store.ErrNotFound) {
				t.Error("No template should be stored on rejection")
			}
		})
	}
}

func TestEnrollLivenessBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		score   float64
		status  EnrollStatus
		verdict liveness.Verdict
	}{
		{"clear spoof", 0.1, EnrollLivenessRejected, liveness.VerdictSpoof},
		{"exactly reject threshold is ambiguous", 0.3, EnrollLivenessRejected, liveness.VerdictAmbiguous},
		{"ambiguous band", 0.5, EnrollLivenessRejected, liveness.VerdictAmbiguous},
		{"exactly accept threshold is real", 0.7, EnrollOK, liveness.VerdictReal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.inf.livenessScore = tc.score

			result, err := f.engine.Enroll(context.Background(), "user123", "User One", []byte("frame"))
			if err != nil {
				t.Fatalf("Enroll failed: %v", err)
			}
			if result.Status != tc.status {
				t.Errorf("Expected status %s, got %s", tc.status, result.Status)
			}
			if result.Verdict != tc.verdict {
				t.Errorf("Expected verdict %s, got %s", tc.verdict, result.Verdict)
			}
		})
	}
}

func TestEnrollExtractionFailed(t *testing.T) {
	f := newFixture(t)
	f.inf.embedErr = errors.New("malformed crop")

	result, err := f.engine.Enroll(context.Background(), "user123", "User One", []byte("frame"))
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if result.Status != EnrollExtractionFailed {
		t.Errorf("Expected EnrollExtractionFailed, got %s", result.Status)
	}
}

func TestEnrollInferenceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.inf.detectErr = fmt.Errorf("%w: connection refused", inference.ErrUnavailable)

	_, err := f.engine.Enroll(context.Background(), "user123", "User One", []byte("frame"))
	if !errors.Is(err, inference.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestCheckInAccepted(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)

	result := f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeAccepted {
		t.Fatalf("Expected ACCEPTED, got %s (%s)", result.Outcome, result.Reason)
	}
	if result.IdentityID != "user123" {
		t.Errorf("Expected identity 'user123', got '%s'", result.IdentityID)
	}
	if math.Abs(result.Similarity-0.89) > 0.01 {
		t.Errorf("Expected similarity ~0.89, got %f", result.Similarity)
	}
	if result.LivenessScore != 0.92 {
		t.Errorf("Expected liveness 0.92, got %f", result.LivenessScore)
	}
	if math.Abs(result.DistanceMeters-50.5) > 1.0 {
		t.Errorf("Expected distance ~50.5m, got %f", result.DistanceMeters)
	}
	if result.EvidenceRef == "" {
		t.Error("Expected evidence reference on accepted attempt")
	}

	attempts, err := f.ledger.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Failed to list attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("Expected 1 ledger entry, got %d", len(attempts))
	}
	got := attempts[0]
	if got.Outcome != store.OutcomeAccepted || got.IdentityID != "user123" {
		t.Errorf("Ledger entry mismatch: %+v", got)
	}
	if got.AttemptID == "" {
		t.Error("Ledger entry missing attempt id")
	}
}

func TestCheckInGeofenceRejected(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)

	result := f.checkInAt(t, 1500)
	if result.Outcome != store.OutcomeRejectedGeofence {
		t.Fatalf("Expected REJECTED_GEOFENCE, got %s", result.Outcome)
	}
	if math.Abs(result.DistanceMeters-1500) > 2.0 {
		t.Errorf("Expected distance ~1500m, got %f", result.DistanceMeters)
	}

	attempts, _ := f.ledger.ListRecent(context.Background(), 10)
	if len(attempts) != 1 {
		t.Fatalf("Expected ledger entry for geofence rejection, got %d", len(attempts))
	}

	// The rejection must not have consumed the cooldown.
	result = f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeAccepted {
		t.Errorf("Expected cooldown untouched after geofence rejection, got %s", result.Outcome)
	}
}

func TestCheckInCooldownRejected(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)

	result := f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeAccepted {
		t.Fatalf("Expected first check-in ACCEPTED, got %s", result.Outcome)
	}

	f.clock = f.clock.Add(time.Minute)
	result = f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeRejectedCooldown {
		t.Fatalf("Expected REJECTED_COOLDOWN, got %s", result.Outcome)
	}
	// The cooldown rejection still reports who matched, for audit.
	if result.IdentityID != "user123" {
		t.Errorf("Expected matched identity on cooldown rejection, got '%s'", result.IdentityID)
	}
	if result.Similarity == 0 {
		t.Error("Expected similarity on cooldown rejection")
	}

	f.clock = f.clock.Add(5 * time.Minute)
	result = f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeAccepted {
		t.Errorf("Expected ACCEPTED after window elapsed, got %s", result.Outcome)
	}

	attempts, _ := f.ledger.ListRecent(context.Background(), 10)
	if len(attempts) != 3 {
		t.Errorf("Expected 3 ledger entries, got %d", len(attempts))
	}
}

func TestCheckInLivenessRejected(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)
	f.inf.livenessScore = 0.2

	result := f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeRejectedLiveness {
		t.Fatalf("Expected REJECTED_LIVENESS, got %s", result.Outcome)
	}
	if result.Reason == "" {
		t.Error("Expected a rejection reason")
	}
}

func TestCheckInNoFace(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)
	f.inf.faces = 0

	result := f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeRejectedNoFace {
		t.Fatalf("Expected REJECTED_NO_FACE, got %s", result.Outcome)
	}

	f.inf.faces = 3
	result = f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeRejectedNoFace {
		t.Fatalf("Expected REJECTED_NO_FACE for multi-face, got %s", result.Outcome)
	}
	if result.Reason == "" {
		t.Error("Expected a reason distinguishing multi-face input")
	}
}

func TestCheckInNoMatch(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)
	// Orthogonal query cannot clear the 0.5 similarity cutoff.
	f.inf.embedding = testEmbedding(0, 1)

	result := f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeRejectedNoMatch {
		t.Fatalf("Expected REJECTED_NO_MATCH, got %s", result.Outcome)
	}
	if result.IdentityID != "" {
		t.Errorf("Expected no identity, got '%s'", result.IdentityID)
	}
}

func TestCheckInExpectedIdentityMismatch(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)

	result, err := f.engine.CheckIn(context.Background(), CheckInRequest{
		Image:              []byte("frame"),
		Latitude:           anchorLat,
		Longitude:          anchorLng,
		ExpectedIdentityID: "someone-else",
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if result.Outcome != store.OutcomeRejectedNoMatch {
		t.Fatalf("Expected REJECTED_NO_MATCH on mismatch, got %s", result.Outcome)
	}
	if result.IdentityID != "" {
		t.Errorf("Mismatch must not reveal the matched identity, got '%s'", result.IdentityID)
	}
}

func TestCheckInInvalidCoordinates(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CheckIn(context.Background(), CheckInRequest{
		Image:    []byte("frame"),
		Latitude: 91.0,
	})
	if !errors.Is(err, geo.ErrInvalidCoordinates) {
		t.Fatalf("Expected ErrInvalidCoordinates, got %v", err)
	}

	attempts, _ := f.ledger.ListRecent(context.Background(), 10)
	if len(attempts) != 0 {
		t.Errorf("Invalid input must not reach the ledger, got %d entries", len(attempts))
	}
}

func TestCheckInInferenceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)
	f.inf.detectErr = fmt.Errorf("%w: timeout", inference.ErrUnavailable)

	_, err := f.engine.CheckIn(context.Background(), CheckInRequest{
		Image:     []byte("frame"),
		Latitude:  anchorLat,
		Longitude: anchorLng,
	})
	if !errors.Is(err, inference.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}

	attempts, _ := f.ledger.ListRecent(context.Background(), 10)
	if len(attempts) != 0 {
		t.Errorf("Unevaluated attempt must not reach the ledger, got %d entries", len(attempts))
	}
}

// flakyLedger fails Append while appendErr is set, then delegates.
type flakyLedger struct {
	*storemem.AttemptLedger
	appendErr error
}

func (l *flakyLedger) Append(ctx context.Context, attempt store.Attempt) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	return l.AttemptLedger.Append(ctx, attempt)
}

func TestCheckInLedgerFailureReleasesCooldown(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)

	flaky := &flakyLedger{AttemptLedger: f.ledger, appendErr: errors.New("connection reset")}
	f.engine.ledger = flaky

	_, err := f.engine.CheckIn(context.Background(), CheckInRequest{
		Image:     []byte("frame"),
		Latitude:  anchorLat,
		Longitude: anchorLng,
	})
	if err == nil {
		t.Fatal("Expected an error when the ledger append fails")
	}

	// The retry must not be blocked by a window the failed attempt started.
	flaky.appendErr = nil
	f.clock = f.clock.Add(time.Minute)
	result := f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeAccepted {
		t.Errorf("Expected ACCEPTED on retry after failed append, got %s (%s)", result.Outcome, result.Reason)
	}
}

func TestCheckInEvidenceFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.enrollUser123(t)
	f.evidence.err = errors.New("disk full")

	result := f.checkInAt(t, 50.5)
	if result.Outcome != store.OutcomeAccepted {
		t.Fatalf("Expected ACCEPTED despite evidence failure, got %s", result.Outcome)
	}
	if result.EvidenceRef != "" {
		t.Errorf("Expected empty evidence reference, got '%s'", result.EvidenceRef)
	}

	attempts, _ := f.ledger.ListRecent(context.Background(), 10)
	if len(attempts) != 1 {
		t.Errorf("Ledger entry must survive evidence failure, got %d entries", len(attempts))
	}
}
