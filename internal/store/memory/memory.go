// Package memory provides in-memory implementations of the store interfaces.
// They back unit tests and single-node development runs; production uses the
// postgres package behind the same interfaces.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/verid/facegate/internal/store"
)

// TemplateStore keeps identity templates in a map. Writes for the same
// identity are serialized through a keyed mutex so an Upsert/Delete pair can
// never interleave; the short global lock only guards the map itself, so
// writes to unrelated identities do not contend beyond the map swap.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]store.Template
	keyLocks  sync.Map // identityID -> *sync.Mutex
	now       func() time.Time
}

// NewTemplateStore creates an empty in-memory template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		templates: make(map[string]store.Template),
		now:       time.Now,
	}
}

func (s *TemplateStore) lockKey(identityID string) *sync.Mutex {
	m, _ := s.keyLocks.LoadOrStore(identityID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// Upsert stores or replaces the template for an identity.
func (s *TemplateStore) Upsert(_ context.Context, identityID, displayName string, embedding []float32) error {
	if err := store.ValidateEmbedding(embedding); err != nil {
		return err
	}

	km := s.lockKey(identityID)
	km.Lock()
	defer km.Unlock()

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, exists := s.templates[identityID]
	if !exists {
		tpl = store.Template{IdentityID: identityID, CreatedAt: now}
	}
	tpl.DisplayName = displayName
	tpl.NormalizedName = store.NormalizeName(displayName)
	tpl.Embedding = slices.Clone(embedding)
	tpl.UpdatedAt = now
	s.templates[identityID] = tpl
	return nil
}

// Get returns the template for an identity.
func (s *TemplateStore) Get(_ context.Context, identityID string) (store.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tpl, ok := s.templates[identityID]; ok {
		return tpl, nil
	}
	return store.Template{}, store.ErrNotFound
}

// Delete removes the template for an identity.
func (s *TemplateStore) Delete(_ context.Context, identityID string) error {
	km := s.lockKey(identityID)
	km.Lock()
	defer km.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[identityID]; !ok {
		return store.ErrNotFound
	}
	delete(s.templates, identityID)
	s.keyLocks.Delete(identityID)
	return nil
}

// NearestNeighbor linearly scans every template for the best cosine match.
// Exact score ties go to the lexically smaller identity id.
func (s *TemplateStore) NearestNeighbor(_ context.Context, query []float32, minSimilarity float64) (store.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best store.Match
	found := false
	for id, tpl := range s.templates {
		sim := store.CosineSimilarity(query, tpl.Embedding)
		switch {
		case !found, sim > best.Similarity:
			best = store.Match{IdentityID: id, Similarity: sim}
			found = true
		case sim == best.Similarity && id < best.IdentityID:
			best.IdentityID = id
		}
	}

	if !found || best.Similarity < minSimilarity {
		return store.Match{}, store.ErrNoMatch
	}
	return best, nil
}

// FindByName returns templates whose normalized display name matches.
func (s *TemplateStore) FindByName(_ context.Context, name string) ([]store.Template, error) {
	normalized := store.NormalizeName(name)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Template
	for _, tpl := range s.templates {
		if tpl.NormalizedName == normalized {
			out = append(out, tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

// Count returns the number of enrolled identities.
func (s *TemplateStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates), nil
}

// AttemptLedger is an append-only in-memory ledger.
type AttemptLedger struct {
	mu       sync.RWMutex
	attempts []store.Attempt
}

// NewAttemptLedger creates an empty in-memory ledger.
func NewAttemptLedger() *AttemptLedger {
	return &AttemptLedger{}
}

// Append records one attempt.
func (l *AttemptLedger) Append(_ context.Context, attempt store.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

// ListRecent returns up to limit attempts, newest first.
func (l *AttemptLedger) ListRecent(_ context.Context, limit int) ([]store.Attempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(limit, func(store.Attempt) bool { return true }), nil
}

// ListByIdentity returns up to limit attempts for one identity, newest first.
func (l *AttemptLedger) ListByIdentity(_ context.Context, identityID string, limit int) ([]store.Attempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(limit, func(a store.Attempt) bool { return a.IdentityID == identityID }), nil
}

// collect walks the ledger backwards. Must be called with the lock held.
func (l *AttemptLedger) collect(limit int, keep func(store.Attempt) bool) []store.Attempt {
	var out []store.Attempt
	for i := len(l.attempts) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(l.attempts[i]) {
			out = append(out, l.attempts[i])
		}
	}
	return out
}
