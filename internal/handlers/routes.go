package handlers

import (
	"net/http"

	"github.com/findosh/northbank/internal/middleware"
	"github.com/findosh/northbank/internal/models"
)

// Routes registers every endpoint on a new mux
func (h *Handler) Routes(authMiddleware *middleware.Auth) *http.ServeMux {
	mux := http.NewServeMux()

	client := func(fn http.HandlerFunc) http.Handler {
		return middleware.Chain(fn, authMiddleware.RequireAuth, middleware.RequireRole(models.RoleClient))
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return middleware.Chain(fn, authMiddleware.RequireAuth, middleware.RequireRole(models.RoleAdmin))
	}

	mux.HandleFunc("GET /health", h.Health)

	// Public routes
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.Handle("POST /api/auth/logout", authMiddleware.OptionalAuth(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /api/auth/me", authMiddleware.RequireAuth(http.HandlerFunc(h.Me)))

	// Client routes
	mux.Handle("GET /api/client/balance", client(h.Balance))
	mux.Handle("GET /api/client/transactions", client(h.Transactions))
	mux.Handle("POST /api/client/deposit", client(h.Deposit))
	mux.Handle("POST /api/client/withdraw", client(h.Withdraw))
	mux.Handle("PUT /api/client/device", client(h.UpdateDevice))

	// Admin routes
	mux.Handle("GET /api/admin/customers", admin(h.Customers))
	mux.Handle("GET /api/admin/customers/{id}", admin(h.Customer))
	mux.Handle("POST /api/admin/customers/{id}/verify", admin(h.VerifyCustomer))
	mux.Handle("GET /api/admin/transactions", admin(h.AllTransactions))
	mux.Handle("GET /api/admin/dashboard/stats", admin(h.DashboardStats))

	return mux
}
