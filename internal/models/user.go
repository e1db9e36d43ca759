// Package models defines core domain types
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role distinguishes bank staff from customers
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleClient
}

// User represents an account holder or an administrator
type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize to JSON
	Role         Role       `json:"role"`
	DeviceID     string     `json:"deviceId,omitempty"`
	Balance      Money      `json:"balance"`
	IsVerified   bool       `json:"isVerified"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// NewUser creates a new user with generated ID and timestamps.
// Clients start unverified with a zero balance.
func NewUser(name, email, passwordHash string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		Balance:      0,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsClient reports whether the user holds a balance
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// NormalizeEmail returns the canonical, case-insensitive form of an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Principal is the authenticated identity resolved from a token or session.
// Its fields are a snapshot taken when the credential was issued.
type Principal struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	SessionID string    `json:"-"`
}

// IsAdmin reports whether the principal carries the admin role
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
