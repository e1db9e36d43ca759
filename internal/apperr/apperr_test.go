package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Status(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindInvalidAmount, http.StatusBadRequest},
		{KindInsufficientBalance, http.StatusBadRequest},
		{KindInvalidCredentials, http.StatusUnauthorized},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindSessionExpired, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindStoreUnavailable, http.StatusInternalServerError},
		{Kind("unknown"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.kind.Status(), string(tc.kind))
	}
}

func TestError_IsMatchesKindAndMessage(t *testing.T) {
	sentinel := New(KindConflict, "email already registered")
	wrapped := fmt.Errorf("register: %w", sentinel)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindConflict}))
	assert.False(t, errors.Is(wrapped, New(KindConflict, "something else")))
	assert.False(t, errors.Is(wrapped, New(KindNotFound, "email already registered")))
}

func TestWrap_KeepsCauseButNotInMessage(t *testing.T) {
	cause := errors.New("database is locked")
	err := Wrap(KindStoreUnavailable, "storage unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
	assert.Equal(t, "storage unavailable", MessageOf(err))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestKindOf_Unclassified(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "Internal server error", MessageOf(err))
}

func TestWrite_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, Wrap(KindStoreUnavailable, "Service temporarily unavailable", errors.New("no such table: users")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "no such table")

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, KindStoreUnavailable, body.Error.Kind)
	assert.Equal(t, "Service temporarily unavailable", body.Error.Message)
}
