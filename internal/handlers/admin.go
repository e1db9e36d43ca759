package handlers

import (
	"net/http"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/google/uuid"
)

var errInvalidCustomerID = apperr.New(apperr.KindValidation, "Invalid customer ID")

// Customers lists all client accounts
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.adminService.ListCustomers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customers)
}

// Customer returns one client account
func (h *Handler) Customer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, errInvalidCustomerID)
		return
	}

	customer, err := h.adminService.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customer)
}

// VerifyCustomer marks a client account as verified
func (h *Handler) VerifyCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, errInvalidCustomerID)
		return
	}

	customer, err := h.adminService.VerifyCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customer)
}

// AllTransactions lists every transaction with its owner
func (h *Handler) AllTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.adminService.ListTransactions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// DashboardStats returns the admin dashboard summary
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.DashboardStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}
