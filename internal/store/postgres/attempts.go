package postgres

import (
	"context"
	"fmt"

	"github.com/verid/facegate/internal/store"
)

// AttemptLedger implements store.AttemptLedger on PostgreSQL. The table is
// append-only; there is no update or delete path.
type AttemptLedger struct {
	pool *Pool
}

// NewAttemptLedger creates a PostgreSQL attempt ledger.
func NewAttemptLedger(pool *Pool) *AttemptLedger {
	return &AttemptLedger{pool: pool}
}

// Append records one check-in attempt.
func (l *AttemptLedger) Append(ctx context.Context, attempt store.Attempt) error {
	query := `
		INSERT INTO attempts (
			attempt_id, identity_id, similarity, liveness_score,
			latitude, longitude, distance_meters,
			outcome, reason, evidence_ref, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := l.pool.Exec(ctx, query,
		attempt.AttemptID,
		attempt.IdentityID,
		attempt.Similarity,
		attempt.LivenessScore,
		attempt.Latitude,
		attempt.Longitude,
		attempt.DistanceMeters,
		attempt.Outcome,
		attempt.Reason,
		attempt.EvidenceRef,
		attempt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

// ListRecent returns the newest attempts first, up to limit.
func (l *AttemptLedger) ListRecent(ctx context.Context, limit int) ([]store.Attempt, error) {
	query := `
		SELECT attempt_id, identity_id, similarity, liveness_score,
		       latitude, longitude, distance_meters,
		       outcome, reason, evidence_ref, created_at
		FROM attempts
		ORDER BY created_at DESC, attempt_id DESC
		LIMIT $1
	`
	return l.queryAttempts(ctx, query, limit)
}

// ListByIdentity returns the newest attempts for one identity, up to limit.
func (l *AttemptLedger) ListByIdentity(ctx context.Context, identityID string, limit int) ([]store.Attempt, error) {
	query := `
		SELECT attempt_id, identity_id, similarity, liveness_score,
		       latitude, longitude, distance_meters,
		       outcome, reason, evidence_ref, created_at
		FROM attempts
		WHERE identity_id = $1
		ORDER BY created_at DESC, attempt_id DESC
		LIMIT $2
	`
	return l.queryAttempts(ctx, query, identityID, limit)
}

func (l *AttemptLedger) queryAttempts(ctx context.Context, query string, args ...any) ([]store.Attempt, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []store.Attempt
	for rows.Next() {
		var a store.Attempt
		err := rows.Scan(
			&a.AttemptID,
			&a.IdentityID,
			&a.Similarity,
			&a.LivenessScore,
			&a.Latitude,
			&a.Longitude,
			&a.DistanceMeters,
			&a.Outcome,
			&a.Reason,
			&a.EvidenceRef,
			&a.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}
