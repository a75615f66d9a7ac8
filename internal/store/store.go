// Package store defines persistence interfaces for identity templates and the
// check-in attempt ledger, plus the cosine similarity math shared by every
// backend. Interfaces keep the pipelines testable and let deployments choose
// between the in-memory and PostgreSQL implementations without rewiring.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a lookup or delete for an unknown identity.
	ErrNotFound = errors.New("identity not found")

	// ErrInvalidEmbedding reports an embedding with the wrong dimension or a
	// zero norm, which cannot participate in cosine matching.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrNoMatch reports a nearest-neighbor search where no stored template
	// reached the minimum similarity.
	ErrNoMatch = errors.New("no matching identity")
)

// TemplateStore owns identity templates. Writes for the same identity are
// serialized; reads see a consistent snapshot (never a half-written template).
// Mutations are durable before the call returns.
type TemplateStore interface {
	// Upsert stores or replaces the template for an identity. The embedding
	// must be EmbeddingDim long with a non-zero norm.
	Upsert(ctx context.Context, identityID, displayName string, embedding []float32) error

	// Get returns the template for an identity, or ErrNotFound.
	Get(ctx context.Context, identityID string) (Template, error)

	// Delete removes the template for an identity, or returns ErrNotFound.
	Delete(ctx context.Context, identityID string) error

	// NearestNeighbor scans all templates and returns the highest-similarity
	// identity if it reaches minSimilarity, else ErrNoMatch. Exact ties are
	// broken by lexical identity id order so results are deterministic.
	NearestNeighbor(ctx context.Context, query []float32, minSimilarity float64) (Match, error)

	// FindByName returns templates whose display name matches after
	// normalization (lowercase, diacritics stripped).
	FindByName(ctx context.Context, name string) ([]Template, error)

	// Count returns the number of enrolled identities.
	Count(ctx context.Context) (int, error)
}

// AttemptLedger is the append-only record of check-in attempts. Appended
// records are never mutated or deleted.
type AttemptLedger interface {
	// Append records one whole attempt. Concurrent appends must not lose or
	// interleave records.
	Append(ctx context.Context, attempt Attempt) error

	// ListRecent returns up to limit attempts, newest first.
	ListRecent(ctx context.Context, limit int) ([]Attempt, error)

	// ListByIdentity returns up to limit attempts for one identity, newest first.
	ListByIdentity(ctx context.Context, identityID string, limit int) ([]Attempt, error)
}

// ValidateEmbedding checks dimension and norm ahead of an upsert.
func ValidateEmbedding(embedding []float32) error {
	if len(embedding) != EmbeddingDim {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrInvalidEmbedding, len(embedding), EmbeddingDim)
	}
	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return fmt.Errorf("%w: zero norm", ErrInvalidEmbedding)
	}
	return nil
}
