// Package token issues and verifies signed bearer tokens
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/findosh/northbank/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the principal facts carried by a token
type Claims struct {
	UserID    uuid.UUID
	Email     string
	Role      models.Role
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
}

// Issuer signs and verifies HS256 tokens. It holds no state besides the key.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer for the given HMAC secret
func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, now: time.Now}
}

// Issue signs claims valid for ttl from now. IssuedAt and ExpiresAt in the
// claims are ignored and set by the issuer.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	issuedAt := i.now().UTC().Truncate(time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        generateJTI(),
		},
		Email:     claims.Email,
		Role:      string(claims.Role),
		SessionID: claims.SessionID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks algorithm, signature and expiry and returns the claims.
// It fails closed: any problem yields ErrInvalidToken or ErrTokenExpired.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role := models.Role(parsed.Role)
	if !role.IsValid() || parsed.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID:    userID,
		Email:     parsed.Email,
		Role:      role,
		SessionID: parsed.SessionID,
		IssuedAt:  parsed.IssuedAt.UTC(),
		ExpiresAt: parsed.ExpiresAt.UTC(),
	}, nil
}

func generateJTI() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
