// Package apperr defines the error taxonomy shared by services and the HTTP boundary.
//
// Every error that leaves a service carries a Kind (machine readable), a Message
// (safe to display) and optionally the underlying cause, which is only ever logged.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP status mapping
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindInvalidAmount       Kind = "invalid_amount"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindUnauthorized        Kind = "unauthorized"
	KindSessionExpired      Kind = "session_expired"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindStoreUnavailable    Kind = "store_unavailable"
	KindInternal            Kind = "internal_error"
)

// Status returns the HTTP status class for the kind
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidAmount, KindInsufficientBalance:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindUnauthorized, KindSessionExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind that keeps err as its cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind. An empty target message matches
// any message of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns a display-safe message for err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// Response is the JSON error envelope written at the HTTP boundary
type Response struct {
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Write sends err as a JSON error response. Only the kind and the message
// are written; the cause stays in the logs.
func Write(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.Status())
	json.NewEncoder(w).Encode(Response{Error: ResponseError{Kind: kind, Message: MessageOf(err)}})
}
