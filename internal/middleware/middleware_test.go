package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/findosh/northbank/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubResolver struct {
	tokens   map[string]*models.Principal
	sessions map[string]*models.Principal
}

var errBadCredentials = apperr.New(apperr.KindUnauthorized, "Invalid or expired credentials")

func (s stubResolver) ResolvePrincipal(_ context.Context, token string) (*models.Principal, error) {
	if p, ok := s.tokens[token]; ok {
		return p, nil
	}
	return nil, errBadCredentials
}

func (s stubResolver) ResolveSession(_ context.Context, id string) (*models.Principal, error) {
	if p, ok := s.sessions[id]; ok {
		return p, nil
	}
	return nil, errBadCredentials
}

func newStubAuth() (*Auth, *models.Principal, *models.Principal) {
	client := &models.Principal{UserID: uuid.New(), Email: "client@bank.test", Role: models.RoleClient, SessionID: "s-client"}
	admin := &models.Principal{UserID: uuid.New(), Email: "admin@bank.test", Role: models.RoleAdmin, SessionID: "s-admin"}
	return NewAuth(stubResolver{
		tokens:   map[string]*models.Principal{"client-token": client, "admin-token": admin},
		sessions: map[string]*models.Principal{"s-client": client, "s-admin": admin},
	}), client, admin
}

func principalEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r)
		require.NotNil(t, p)
		w.Write([]byte(p.Email))
	})
}

func decodeKind(t *testing.T, rec *httptest.ResponseRecorder) apperr.Kind {
	t.Helper()
	var body apperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Kind
}

func TestRequireAuth(t *testing.T) {
	auth, _, _ := newStubAuth()
	h := auth.RequireAuth(principalEcho(t))

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		body    string
	}{
		{"bearer", map[string]string{"Authorization": "Bearer client-token"}, http.StatusOK, "client@bank.test"},
		{"session header", map[string]string{SessionIDHeader: "s-admin"}, http.StatusOK, "admin@bank.test"},
		{"none", nil, http.StatusUnauthorized, ""},
		{"bad token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, ""},
		{"basic scheme", map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}, http.StatusUnauthorized, ""},
		{"empty bearer", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized, ""},
		{"bad token does not fall back", map[string]string{"Authorization": "Bearer nope", SessionIDHeader: "s-admin"}, http.StatusUnauthorized, ""},
		{"unknown session", map[string]string{SessionIDHeader: "gone"}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.Equal(t, apperr.KindUnauthorized, decodeKind(t, rec))
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	auth, _, _ := newStubAuth()
	var seen *models.Principal
	h := auth.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPrincipal(r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set(SessionIDHeader, "s-client")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "s-client", seen.SessionID)
}

func TestRequireRole(t *testing.T) {
	auth, _, _ := newStubAuth()
	h := Chain(principalEcho(t), auth.RequireAuth, RequireRole(models.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/customers", nil)
	req.Header.Set("Authorization", "Bearer client-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.KindForbidden, decodeKind(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/api/admin/customers", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// without RequireAuth in front there is no principal
	rec = httptest.NewRecorder()
	RequireRole(models.RoleAdmin)(principalEcho(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestID(r.Context()))
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/client/deposit", nil))

	requestID := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(requestID)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, requestID, fields["request_id"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/client/deposit", fields["path"])
	assert.EqualValues(t, http.StatusCreated, fields["status"])
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), Logger(logger), Recover(logger))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperr.KindInternal, decodeKind(t, rec))
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	// the request line is logged at error level with the 500
	assert.Equal(t, 1, logs.FilterMessage("request").Len())
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
