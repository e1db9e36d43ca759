// Package auth provides authentication services
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/findosh/northbank/internal/config"
	"github.com/findosh/northbank/internal/models"
	"github.com/findosh/northbank/internal/services/session"
	"github.com/findosh/northbank/internal/services/token"
	"github.com/findosh/northbank/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindInvalidCredentials, "Invalid email or password")
	ErrEmailExists        = apperr.New(apperr.KindConflict, "Email already registered")
	ErrUnauthorized       = apperr.New(apperr.KindUnauthorized, "Invalid or expired credentials")
	ErrSessionExpired     = apperr.New(apperr.KindSessionExpired, "Session expired")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "User not found")
	ErrNotClient          = apperr.New(apperr.KindForbidden, "Only client accounts have a device")
	ErrStoreUnavailable   = apperr.New(apperr.KindStoreUnavailable, "Service temporarily unavailable")
)

// UserStore is the user persistence the auth service needs
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateDeviceID(ctx context.Context, id uuid.UUID, deviceID string) error
}

// TokenIssuer signs and verifies bearer tokens
type TokenIssuer interface {
	Issue(claims token.Claims, ttl time.Duration) (string, error)
	Verify(tokenString string) (*token.Claims, error)
}

// Service handles authentication operations
type Service struct {
	users        UserStore
	sessions     session.Registry
	tokens       TokenIssuer
	logger       *zap.Logger
	tokenTTL     time.Duration
	storeTimeout time.Duration
	hashCost     int
	now          func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a new auth service
func NewService(cfg *config.Config, users UserStore, sessions session.Registry, tokens TokenIssuer, logger *zap.Logger) *Service {
	return &Service{
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		logger:       logger.Named("auth"),
		tokenTTL:     cfg.TokenDuration,
		storeTimeout: cfg.StoreTimeout,
		hashCost:     bcrypt.DefaultCost,
		now:          time.Now,
	}
}

// RegisterInput contains registration data
type RegisterInput struct {
	Name            string `validate:"required,max=100"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,password"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	DeviceID        string `validate:"required,deviceid"`
}

// LoginInput contains login credentials
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	DeviceID string `validate:"omitempty,deviceid"`
}

// Result is returned by a successful login or registration
type Result struct {
	User      *models.User
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// Authenticate checks an email and password pair. A missing user and a wrong
// password are indistinguishable to the caller, in result and in timing.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	user, err := s.users.GetByEmail(lookupCtx, models.NormalizeEmail(email))
	cancel()
	if err != nil {
		return nil, s.storeError("find user", err)
	}
	if user == nil {
		bcrypt.CompareHashAndPassword(s.dummyPasswordHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a client account and signs it in
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Result, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationError(err, "All fields are required")
	}

	email := models.NormalizeEmail(input.Email)

	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	existing, err := s.users.GetByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		return nil, s.storeError("check email", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Registration failed", err)
	}

	user := models.NewUser(input.Name, email, string(hash), models.RoleClient)
	user.DeviceID = input.DeviceID

	createCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	err = s.users.Create(createCtx, user)
	cancel()
	if errors.Is(err, storage.ErrDuplicateEmail) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, s.storeError("create user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.startSession(ctx, user, input.DeviceID)
}

// Login authenticates a user and starts a new session. Earlier sessions of
// the same user stay valid.
func (s *Service) Login(ctx context.Context, input LoginInput) (*Result, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationError(err, "Email and password are required")
	}

	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if input.DeviceID != "" && user.IsClient() && input.DeviceID != user.DeviceID {
		if err := s.users.UpdateDeviceID(storeCtx, user.ID, input.DeviceID); err != nil {
			return nil, s.storeError("update device id", err)
		}
		user.DeviceID = input.DeviceID
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(storeCtx, user.ID, now); err != nil {
		return nil, s.storeError("update last login", err)
	}
	user.LastLogin = &now

	return s.startSession(ctx, user, input.DeviceID)
}

// Logout ends a session. Unknown or already ended sessions are not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		return s.storeError("invalidate session", err)
	}
	return nil
}

// ResolvePrincipal verifies a bearer token and requires the session it was
// issued with to still be live, so logging out revokes the token as well.
func (s *Service) ResolvePrincipal(ctx context.Context, tokenString string) (*models.Principal, error) {
	claims, err := s.tokens.Verify(tokenString)
	if errors.Is(err, token.ErrTokenExpired) {
		return nil, apperr.Wrap(ErrSessionExpired.Kind, ErrSessionExpired.Message, err)
	}
	if err != nil {
		return nil, apperr.Wrap(ErrUnauthorized.Kind, ErrUnauthorized.Message, err)
	}
	if claims.SessionID == "" {
		return nil, ErrUnauthorized
	}

	p, err := s.ResolveSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if p.UserID != claims.UserID {
		return nil, ErrUnauthorized
	}
	return p, nil
}

// ResolveSession returns the principal bound to a live session
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*models.Principal, error) {
	if sessionID == "" {
		return nil, ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sess, err := s.sessions.Lookup(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, apperr.Wrap(ErrUnauthorized.Kind, ErrUnauthorized.Message, err)
	}
	if err != nil {
		return nil, s.storeError("lookup session", err)
	}
	return sess.Principal(), nil
}

// CurrentUser loads the user record behind a principal
func (s *Service) CurrentUser(ctx context.Context, p *models.Principal) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, s.storeError("find user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateDeviceID binds a new device to a client account
func (s *Service) UpdateDeviceID(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if err := validate.Var(deviceID, "required,deviceid"); err != nil {
		return apperr.New(apperr.KindValidation, "Invalid device ID format")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return s.storeError("find user", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !user.IsClient() {
		return ErrNotClient
	}

	if err := s.users.UpdateDeviceID(ctx, userID, deviceID); err != nil {
		return s.storeError("update device id", err)
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// Empty email or password disables seeding.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if !isStrongPassword(password) {
		return apperr.New(apperr.KindValidation, "Admin password does not meet the password policy")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	existing, err := s.users.GetByEmail(lookupCtx, models.NormalizeEmail(email))
	cancel()
	if err != nil {
		return s.storeError("find admin", err)
	}
	if existing != nil {
		if existing.Role != models.RoleAdmin {
			return apperr.New(apperr.KindConflict, "Admin email belongs to a client account")
		}
		return nil
	}

	// Hashing runs outside the store deadline.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "Failed to hash admin password", err)
	}

	admin := models.NewUser(name, email, string(hash), models.RoleAdmin)
	admin.IsVerified = true

	createCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.Create(createCtx, admin); err != nil && !errors.Is(err, storage.ErrDuplicateEmail) {
		return s.storeError("create admin", err)
	}

	s.logger.Info("admin account ensured", zap.String("email", admin.Email))
	return nil
}

func (s *Service) startSession(ctx context.Context, user *models.User, deviceID string) (*Result, error) {
	sessCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sess, err := s.sessions.Create(sessCtx, session.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, deviceID)
	if err != nil {
		return nil, s.storeError("create session", err)
	}

	tok, err := s.tokens.Issue(token.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: sess.ID,
	}, s.tokenTTL)
	if err != nil {
		if ierr := s.sessions.Invalidate(sessCtx, sess.ID); ierr != nil {
			s.logger.Warn("failed to drop session after token error",
				zap.String("session_id", sess.ID), zap.Error(ierr))
		}
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to issue token", err)
	}

	return &Result{
		User:      user,
		Token:     tok,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

func (s *Service) storeError(op string, err error) error {
	s.logger.Error("store failure", zap.String("op", op), zap.Error(err))
	return apperr.Wrap(ErrStoreUnavailable.Kind, ErrStoreUnavailable.Message, err)
}

// dummyPasswordHash is compared against when the user does not exist
func (s *Service) dummyPasswordHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("northbank-timing-guard"), s.hashCost)
	})
	return s.dummyHash
}
