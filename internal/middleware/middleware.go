// Package middleware provides HTTP middleware functions
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/findosh/northbank/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
	RequestIDContextKey contextKey = "request_id"
)

const (
	RequestIDHeader = "X-Request-ID"
	SessionIDHeader = "X-Session-ID"
)

var (
	errAuthRequired = apperr.New(apperr.KindUnauthorized, "Authentication required")
	errForbidden    = apperr.New(apperr.KindForbidden, "Access denied")
)

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Logger assigns every request an id and logs it once it completes
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			w.Header().Set(RequestIDHeader, requestID)

			rec := &statusRecorder{ResponseWriter: w}
			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("latency", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("request", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}

// SecurityHeaders adds security headers to all responses
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Recover handles panics gracefully
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("request_id", RequestID(r.Context())),
						zap.Stack("stack"),
					)
					apperr.Write(w, apperr.New(apperr.KindInternal, "Internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalResolver turns request credentials into a principal
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (*models.Principal, error)
	ResolveSession(ctx context.Context, sessionID string) (*models.Principal, error)
}

// Auth middleware for protected routes
type Auth struct {
	resolver PrincipalResolver
}

// NewAuth creates a new auth middleware
func NewAuth(resolver PrincipalResolver) *Auth {
	return &Auth{resolver: resolver}
}

// RequireAuth ensures the request carries a valid bearer token or session id
func (m *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.principalFromRequest(r)
		if err != nil {
			apperr.Write(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth adds the principal to the context if the credentials are valid,
// but doesn't require them
func (m *Auth) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := m.principalFromRequest(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), PrincipalContextKey, p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects authenticated principals without the given role.
// It must run after RequireAuth.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r)
			if p == nil {
				apperr.Write(w, errAuthRequired)
				return
			}
			if p.Role != role {
				apperr.Write(w, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principalFromRequest prefers the Authorization header. A bearer token that
// fails verification is rejected even if a session id is also present.
func (m *Auth) principalFromRequest(r *http.Request) (*models.Principal, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return nil, errAuthRequired
		}
		return m.resolver.ResolvePrincipal(r.Context(), strings.TrimSpace(token))
	}

	if sessionID := r.Header.Get(SessionIDHeader); sessionID != "" {
		return m.resolver.ResolveSession(r.Context(), sessionID)
	}

	return nil, errAuthRequired
}

// GetPrincipal retrieves the principal from the request context
func GetPrincipal(r *http.Request) *models.Principal {
	p, ok := r.Context().Value(PrincipalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return p
}

// RequestID returns the id assigned by Logger, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// Chain applies middleware in order
func Chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
