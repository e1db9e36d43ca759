package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// createAttempts bounds retries on the (practically impossible) id collision
const createAttempts = 3

// MemoryRegistry is a process-local Registry
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewMemoryRegistry creates an empty registry whose sessions live for ttl
func NewMemoryRegistry(ttl time.Duration, logger *zap.Logger) *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create implements Registry. The session is fully built before it is
// published under the write lock.
func (r *MemoryRegistry) Create(ctx context.Context, claims Claims, deviceID string) (*Session, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		s, err := newSession(claims, deviceID, r.now(), r.ttl)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if _, exists := r.sessions[s.ID]; exists {
			r.mu.Unlock()
			continue
		}
		r.sessions[s.ID] = s
		r.mu.Unlock()

		out := *s
		return &out, nil
	}
	return nil, ErrCollision
}

// Lookup implements Registry
func (r *MemoryRegistry) Lookup(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok || s.IsExpired(r.now()) {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

// Invalidate implements Registry
func (r *MemoryRegistry) Invalidate(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet swept
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (r *MemoryRegistry) Sweep() int {
	now := r.now()
	removed := 0

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	r.mu.Unlock()

	return removed
}

// Run sweeps expired sessions every interval until ctx is done. A
// non-positive interval disables sweeping; Lookup still expires lazily.
func (r *MemoryRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Warn("session sweeper disabled", zap.Duration("interval", interval))
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("swept expired sessions", zap.Int("removed", n))
			}
		}
	}
}
