// Package cooldown rate-limits repeated check-ins per identity. A tracker
// admits the first attempt for an identity and refuses further attempts until
// the window has elapsed since the admitted one.
package cooldown

import (
	"context"
	"time"
)

// Tracker decides whether an identity may check in right now.
//
// TryAcquire is check-and-set in one step: when it returns true the window
// for the identity starts at now, and every later call within the window
// returns false. Concurrent calls for the same identity admit exactly one.
//
// Release clears an active window so a caller that acquired but could not
// record the check-in can return the slot. Releasing an identity with no
// active window is a no-op.
type Tracker interface {
	TryAcquire(ctx context.Context, identityID string, now time.Time, window time.Duration) (bool, error)
	Release(ctx context.Context, identityID string) error
}
