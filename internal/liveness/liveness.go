// Package liveness classifies anti-spoofing scores into a three-zone verdict.
//
// A single cutoff makes the decision boundary brittle: scores just under the
// threshold flap between accept and reject across model versions. Two
// thresholds carve out an explicit ambiguous band instead, so integrators can
// distinguish "confident spoof" from "retake the photo".
package liveness

import "fmt"

// Verdict is the gate's classification of a liveness score.
type Verdict string

const (
	// VerdictReal means the score cleared the accept threshold.
	VerdictReal Verdict = "REAL"
	// VerdictSpoof means the score fell below the reject threshold.
	VerdictSpoof Verdict = "SPOOF"
	// VerdictAmbiguous covers the band between the two thresholds. Policy
	// treats it as a rejection; callers may prompt for a retake.
	VerdictAmbiguous Verdict = "AMBIGUOUS"
)

// Gate maps liveness scores onto verdicts using two fixed thresholds.
type Gate struct {
	rejectThreshold float64
	acceptThreshold float64
}

// NewGate builds a gate. The reject threshold must be strictly below the
// accept threshold and both must lie in [0,1].
func NewGate(rejectThreshold, acceptThreshold float64) (*Gate, error) {
	if rejectThreshold < 0 || acceptThreshold > 1 {
		return nil, fmt.Errorf("liveness thresholds must lie in [0,1], got reject=%v accept=%v", rejectThreshold, acceptThreshold)
	}
	if rejectThreshold >= acceptThreshold {
		return nil, fmt.Errorf("liveness reject threshold %v must be below accept threshold %v", rejectThreshold, acceptThreshold)
	}
	return &Gate{rejectThreshold: rejectThreshold, acceptThreshold: acceptThreshold}, nil
}

// Classify returns the verdict for a score. The reject boundary is exclusive
// (score == reject threshold is ambiguous, not spoof); the accept boundary is
// inclusive.
func (g *Gate) Classify(score float64) Verdict {
	if score < g.rejectThreshold {
		return VerdictSpoof
	}
	if score >= g.acceptThreshold {
		return VerdictReal
	}
	return VerdictAmbiguous
}
