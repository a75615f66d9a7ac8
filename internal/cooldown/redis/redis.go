// Package redis provides a Redis-backed cooldown tracker so the window
// survives restarts and is shared across replicas.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "facegate:cooldown:"

// Tracker stores per-identity cooldown windows as Redis keys with a TTL.
type Tracker struct {
	client *redis.Client
}

// NewTracker connects to Redis and verifies the connection.
func NewTracker(url string) (*Tracker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Tracker{client: client}, nil
}

// NewTrackerWithClient wraps an existing client, used by tests.
func NewTrackerWithClient(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

// TryAcquire admits the attempt if no key exists for the identity. SET NX
// with expiry is atomic on the server, so concurrent callers for the same
// identity admit exactly one.
//
// The window is enforced by the key TTL, which counts down on the Redis
// server clock; now is stored as the acquisition timestamp but does not
// drive expiry. An injected clock therefore shifts the recorded timestamp
// only, not when the window ends.
func (t *Tracker) TryAcquire(ctx context.Context, identityID string, now time.Time, window time.Duration) (bool, error) {
	ok, err := t.client.SetNX(ctx, keyPrefix+identityID, now.UTC().Format(time.RFC3339Nano), window).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown setnx: %w", err)
	}
	return ok, nil
}

// Release clears any active window for the identity.
func (t *Tracker) Release(ctx context.Context, identityID string) error {
	if err := t.client.Del(ctx, keyPrefix+identityID).Err(); err != nil {
		return fmt.Errorf("cooldown del: %w", err)
	}
	return nil
}

// Health checks the Redis connection.
func (t *Tracker) Health(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (t *Tracker) Close() error {
	return t.client.Close()
}
