// Package mock provides mock implementations of the store interfaces for
// handler and pipeline tests. They wrap the in-memory backends and add error
// injection fields.
package mock

import (
	"context"

	"github.com/verid/facegate/internal/store"
	"github.com/verid/facegate/internal/store/memory"
)

// TemplateStore is a mock store.TemplateStore with per-method error injection.
type TemplateStore struct {
	inner *memory.TemplateStore

	UpsertError          error
	GetError             error
	DeleteError          error
	NearestNeighborError error
	FindByNameError      error
	CountError           error
}

// NewTemplateStore creates an empty mock template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{inner: memory.NewTemplateStore()}
}

// Seed inserts a template directly, failing the test setup on error.
func (m *TemplateStore) Seed(ctx context.Context, identityID, displayName string, embedding []float32) error {
	return m.inner.Upsert(ctx, identityID, displayName, embedding)
}

func (m *TemplateStore) Upsert(ctx context.Context, identityID, displayName string, embedding []float32) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	return m.inner.Upsert(ctx, identityID, displayName, embedding)
}

func (m *TemplateStore) Get(ctx context.Context, identityID string) (store.Template, error) {
	if m.GetError != nil {
		return store.Template{}, m.GetError
	}
	return m.inner.Get(ctx, identityID)
}

func (m *TemplateStore) Delete(ctx context.Context, identityID string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	return m.inner.Delete(ctx, identityID)
}

func (m *TemplateStore) NearestNeighbor(ctx context.Context, query []float32, minSimilarity float64) (store.Match, error) {
	if m.NearestNeighborError != nil {
		return store.Match{}, m.NearestNeighborError
	}
	return m.inner.NearestNeighbor(ctx, query, minSimilarity)
}

func (m *TemplateStore) FindByName(ctx context.Context, name string) ([]store.Template, error) {
	if m.FindByNameError != nil {
		return nil, m.FindByNameError
	}
	return m.inner.FindByName(ctx, name)
}

func (m *TemplateStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	return m.inner.Count(ctx)
}

// AttemptLedger is a mock store.AttemptLedger with error injection.
type AttemptLedger struct {
	inner *memory.AttemptLedger

	AppendError error
	ListError   error
}

// NewAttemptLedger creates an empty mock ledger.
func NewAttemptLedger() *AttemptLedger {
	return &AttemptLedger{inner: memory.NewAttemptLedger()}
}

func (m *AttemptLedger) Append(ctx context.Context, attempt store.Attempt) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	return m.inner.Append(ctx, attempt)
}

func (m *AttemptLedger) ListRecent(ctx context.Context, limit int) ([]store.Attempt, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.inner.ListRecent(ctx, limit)
}

func (m *AttemptLedger) ListByIdentity(ctx context.Context, identityID string, limit int) ([]store.Attempt, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.inner.ListByIdentity(ctx, identityID, limit)
}
