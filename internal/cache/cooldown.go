// Package cache provides the cooldown stores backing the alert engine. The
// store tracks the last-sent time per (line, severity) key; the check-and-set
// is atomic per key so a scheduled trigger and a manual trigger can never
// both pass the check.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linelink/linelink-go/internal/models"
)

func cooldownKey(line string, severity models.Severity) string {
	return fmt.Sprintf("alert_cooldown:%s:%s", line, severity)
}

// MemoryCooldownStore keeps last-sent times in process memory. Suitable for
// tests and single-instance deployments.
type MemoryCooldownStore struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewMemoryCooldownStore creates an empty in-memory store.
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{lastSent: make(map[string]time.Time)}
}

// Acquire reports whether an alert for (line, severity) may be sent at now,
// and records now as the last-sent time in the same critical section when it
// may. A recorded last-sent time is never moved backward.
func (s *MemoryCooldownStore) Acquire(ctx context.Context, line string, severity models.Severity, now time.Time, window time.Duration) (bool, error) {
	key := cooldownKey(line, severity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastSent[key]; ok {
		if now.Before(last) || now.Sub(last) < window {
			return false, nil
		}
	}
	s.lastSent[key] = now
	return true, nil
}

// LastSent returns the recorded last-sent time for a key, if any.
func (s *MemoryCooldownStore) LastSent(line string, severity models.Severity) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastSent[cooldownKey(line, severity)]
	return last, ok
}

// RedisCooldownStore keeps last-sent times in Redis, shared across instances.
// SET NX with a PX expiry equal to the cooldown window makes the
// check-and-set a single atomic operation per key.
type RedisCooldownStore struct {
	client *redis.Client
}

// NewRedisCooldownStore creates a Redis-backed cooldown store.
func NewRedisCooldownStore(client *redis.Client) *RedisCooldownStore {
	return &RedisCooldownStore{client: client}
}

// Acquire atomically claims the cooldown key for (line, severity). The key
// expires after the window, at which point the next Acquire succeeds again.
func (s *RedisCooldownStore) Acquire(ctx context.Context, line string, severity models.Severity, now time.Time, window time.Duration) (bool, error) {
	key := cooldownKey(line, severity)

	ok, err := s.client.SetNX(ctx, key, now.UTC().Format(time.RFC3339Nano), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cooldown for %s: %w", key, err)
	}
	return ok, nil
}
