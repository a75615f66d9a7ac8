// Package memory provides an in-process cooldown tracker. State does not
// survive a restart, which fails open for identities mid-window.
package memory

import (
	"context"
	"sync"
	"time"
)

// Tracker tracks per-identity cooldown windows in memory.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewTracker creates an empty in-memory cooldown tracker.
func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[string]time.Time),
	}
}

// TryAcquire admits the attempt if no window is active for the identity and
// starts a new window at now. Expired entries are reclaimed on the way.
func (t *Tracker) TryAcquire(_ context.Context, identityID string, now time.Time, window time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if expiry, ok := t.entries[identityID]; ok {
		if now.Before(expiry) {
			return false, nil
		}
		delete(t.entries, identityID)
	}

	t.entries[identityID] = now.Add(window)
	return true, nil
}

// Release clears any active window for the identity.
func (t *Tracker) Release(_ context.Context, identityID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, identityID)
	return nil
}

// Len returns the number of tracked identities, expired entries included.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
