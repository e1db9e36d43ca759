package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "session:"

// RedisRegistry keeps sessions in Redis so they survive restarts and are
// shared between instances. Redis TTLs purge expired entries.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisRegistry creates a registry on the given client
func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl, now: time.Now}
}

// Create implements Registry. SETNX refuses to overwrite an existing id.
func (r *RedisRegistry) Create(ctx context.Context, claims Claims, deviceID string) (*Session, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		s, err := newSession(claims, deviceID, r.now(), r.ttl)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session: %w", err)
		}

		ok, err := r.client.SetNX(ctx, keyPrefix+s.ID, payload, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
		if ok {
			return s, nil
		}
	}
	return nil, ErrCollision
}

// Lookup implements Registry
func (r *RedisRegistry) Lookup(ctx context.Context, id string) (*Session, error) {
	payload, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.IsExpired(r.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// Invalidate implements Registry
func (r *RedisRegistry) Invalidate(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
