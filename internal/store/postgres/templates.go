package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/verid/facegate/internal/store"
)

// TemplateRepository implements store.TemplateStore on PostgreSQL. Row-level
// locking and the single-statement upsert give the per-identity write
// serialization the interface requires; MVCC gives consistent read snapshots.
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a PostgreSQL template repository.
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// Upsert stores or replaces the template for an identity.
func (r *TemplateRepository) Upsert(ctx context.Context, identityID, displayName string, embedding []float32) error {
	if err := store.ValidateEmbedding(embedding); err != nil {
		return err
	}

	query := `
		INSERT INTO templates (identity_id, display_name, normalized_name, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (identity_id) DO UPDATE SET
			display_name    = EXCLUDED.display_name,
			normalized_name = EXCLUDED.normalized_name,
			embedding       = EXCLUDED.embedding,
			updated_at      = NOW()
	`
	_, err := r.pool.Exec(ctx, query, identityID, displayName, store.NormalizeName(displayName), pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}

// Get returns the template for an identity.
func (r *TemplateRepository) Get(ctx context.Context, identityID string) (store.Template, error) {
	query := `
		SELECT identity_id, display_name, normalized_name, embedding, created_at, updated_at
		FROM templates
		WHERE identity_id = $1
	`
	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query, identityID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Template{}, store.ErrNotFound
	}
	if err != nil {
		return store.Template{}, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

// Delete removes the template for an identity.
func (r *TemplateRepository) Delete(ctx context.Context, identityID string) error {
	res, err := r.pool.Exec(ctx, "DELETE FROM templates WHERE identity_id = $1", identityID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// NearestNeighbor finds the highest-similarity template via an exact cosine
// scan. pgvector's <=> operator returns cosine distance (1 - similarity);
// identity_id in the ORDER BY makes exact ties deterministic.
func (r *TemplateRepository) NearestNeighbor(ctx context.Context, queryEmbedding []float32, minSimilarity float64) (store.Match, error) {
	query := `
		SELECT identity_id, 1 - (embedding <=> $1::vector) AS similarity
		FROM templates
		ORDER BY embedding <=> $1::vector ASC, identity_id ASC
		LIMIT 1
	`
	var match store.Match
	err := r.pool.QueryRow(ctx, query, pgvector.NewVector(queryEmbedding)).Scan(&match.IdentityID, &match.Similarity)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Match{}, store.ErrNoMatch
	}
	if err != nil {
		return store.Match{}, fmt.Errorf("nearest neighbor query: %w", err)
	}
	if match.Similarity < minSimilarity {
		return store.Match{}, store.ErrNoMatch
	}
	return match, nil
}

// FindByName returns templates whose normalized display name matches.
func (r *TemplateRepository) FindByName(ctx context.Context, name string) ([]store.Template, error) {
	query := `
		SELECT identity_id, display_name, normalized_name, embedding, created_at, updated_at
		FROM templates
		WHERE normalized_name = $1
		ORDER BY identity_id
	`
	rows, err := r.pool.Query(ctx, query, store.NormalizeName(name))
	if err != nil {
		return nil, fmt.Errorf("query templates by name: %w", err)
	}
	defer rows.Close()

	var out []store.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// Count returns the number of enrolled identities.
func (r *TemplateRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM templates").Scan(&count); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (store.Template, error) {
	var tpl store.Template
	var vec pgvector.Vector
	err := row.Scan(&tpl.IdentityID, &tpl.DisplayName, &tpl.NormalizedName, &vec, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return store.Template{}, err
	}
	tpl.Embedding = vec.Slice()
	return tpl, nil
}
