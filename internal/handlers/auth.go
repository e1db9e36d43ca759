package handlers

import (
	"net/http"

	"github.com/findosh/northbank/internal/middleware"
	"github.com/findosh/northbank/internal/services/auth"
)

// Register handles account registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		DeviceID:        req.DeviceID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeAuthResult(w, http.StatusCreated, result)
}

// Login handles credential login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeAuthResult(w, http.StatusOK, result)
}

// Logout ends the caller's session. It always succeeds for credentials that
// are already invalid.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if p := middleware.GetPrincipal(r); p != nil {
		if err := h.authService.Logout(r.Context(), p.SessionID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.CurrentUser(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) writeAuthResult(w http.ResponseWriter, status int, result *auth.Result) {
	w.Header().Set(middleware.SessionIDHeader, result.SessionID)
	h.writeJSON(w, status, authResponse{
		User:      result.User,
		Token:     result.Token,
		SessionID: result.SessionID,
		ExpiresAt: result.ExpiresAt,
	})
}
