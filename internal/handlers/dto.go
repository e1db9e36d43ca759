package handlers

import (
	"time"

	"github.com/findosh/northbank/internal/models"
)

// Request bodies. Unknown fields are rejected by decodeJSON.

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DeviceID        string `json:"deviceId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

type amountRequest struct {
	Amount      models.Money `json:"amount"`
	Description string       `json:"description" validate:"max=255"`
}

type deviceRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
}

// Response bodies

type authResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	SessionID string       `json:"sessionId"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type balanceResponse struct {
	Balance models.Money `json:"balance"`
}

type messageResponse struct {
	Message string `json:"message"`
}
