package handlers

import (
	"context"
	"net/http"

	"github.com/findosh/northbank/internal/middleware"
	"github.com/findosh/northbank/internal/models"
	"github.com/google/uuid"
)

// Balance returns the client's current balance
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r)
	balance, err := h.ledger.GetBalance(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// Transactions lists the client's transactions, newest first
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r)
	txs, err := h.ledger.ListTransactions(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// Deposit credits the client's balance
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.ledger.Deposit)
}

// Withdraw debits the client's balance
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.ledger.Withdraw)
}

type ledgerOp func(ctx context.Context, userID uuid.UUID, amount models.Money, description string) (*models.Transaction, error)

func (h *Handler) applyAmount(w http.ResponseWriter, r *http.Request, op ledgerOp) {
	var req amountRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p := middleware.GetPrincipal(r)
	tx, err := op(r.Context(), p.UserID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// UpdateDevice binds a new device id to the client
func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p := middleware.GetPrincipal(r)
	if err := h.authService.UpdateDeviceID(r.Context(), p.UserID, req.DeviceID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Device updated successfully"})
}
