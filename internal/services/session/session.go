// Package session keeps the table of live authenticated sessions.
//
// A session binds an unpredictable identifier to a snapshot of the principal
// taken at login. Sessions end by explicit invalidation or by expiry; both are
// final, and lookups treat expired entries as absent even before they are purged.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/findosh/northbank/internal/models"
	"github.com/google/uuid"
)

// idBytes gives 256 bits of entropy per session id
const idBytes = 32

var (
	ErrNotFound  = errors.New("session not found")
	ErrCollision = errors.New("session id collision")
)

// Claims is the principal snapshot stored with a session
type Claims struct {
	UserID uuid.UUID   `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// Session is an authenticated-context binding
type Session struct {
	ID        string    `json:"id"`
	Claims    Claims    `json:"claims"`
	DeviceID  string    `json:"deviceId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired checks if the session has expired at the given instant
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Principal converts the session into the authenticated principal
func (s *Session) Principal() *models.Principal {
	return &models.Principal{
		UserID:    s.Claims.UserID,
		Email:     s.Claims.Email,
		Role:      s.Claims.Role,
		SessionID: s.ID,
	}
}

// Registry stores sessions. Implementations are safe for concurrent use.
type Registry interface {
	// Create stores a new session and returns it with its generated id
	Create(ctx context.Context, claims Claims, deviceID string) (*Session, error)
	// Lookup returns ErrNotFound for unknown, invalidated or expired ids
	Lookup(ctx context.Context, id string) (*Session, error)
	// Invalidate ends a session; unknown ids are a no-op
	Invalidate(ctx context.Context, id string) error
}

// NewID returns a random hex session identifier
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func newSession(claims Claims, deviceID string, now time.Time, ttl time.Duration) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Session{
		ID:        id,
		Claims:    claims,
		DeviceID:  deviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
