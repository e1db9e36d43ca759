// Package admin provides the read-mostly views behind the admin dashboard
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/findosh/northbank/internal/config"
	"github.com/findosh/northbank/internal/models"
	"github.com/findosh/northbank/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrCustomerNotFound = apperr.New(apperr.KindNotFound, "Customer not found")
	ErrStoreUnavailable = apperr.New(apperr.KindStoreUnavailable, "Service temporarily unavailable")
)

// UserStore is the user persistence the admin views need
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

// TransactionStore is the transaction log the admin views need
type TransactionStore interface {
	ListAll(ctx context.Context) ([]models.TransactionWithOwner, error)
	Summary(ctx context.Context) (*storage.TransactionSummary, error)
}

// DashboardStats summarizes customers and money movement
type DashboardStats struct {
	TotalCustomers       int          `json:"totalCustomers"`
	TotalTransactions    int          `json:"totalTransactions"`
	TotalDeposits        models.Money `json:"totalDeposits"`
	TotalWithdrawals     models.Money `json:"totalWithdrawals"`
	PendingVerifications int          `json:"pendingVerifications"`
	LowBalanceCustomers  int          `json:"lowBalanceCustomers"`
	LowBalanceThreshold  models.Money `json:"lowBalanceThreshold"`
}

// Service handles admin operations
type Service struct {
	users        UserStore
	transactions TransactionStore
	logger       *zap.Logger
	storeTimeout time.Duration
	lowBalance   models.Money
}

// NewService creates a new admin service
func NewService(cfg *config.Config, users UserStore, transactions TransactionStore, logger *zap.Logger) (*Service, error) {
	threshold, err := models.MoneyFromDecimal(cfg.LowBalanceThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid low balance threshold: %w", err)
	}
	return &Service{
		users:        users,
		transactions: transactions,
		logger:       logger.Named("admin"),
		storeTimeout: cfg.StoreTimeout,
		lowBalance:   threshold,
	}, nil
}

// ListCustomers returns all client accounts, newest first
func (s *Service) ListCustomers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	customers, err := s.users.ListByRole(ctx, models.RoleClient)
	if err != nil {
		return nil, s.storeError("list customers", err)
	}
	if customers == nil {
		customers = []models.User{}
	}
	return customers, nil
}

// GetCustomer returns one client account. Admin ids are not customers.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get customer", err)
	}
	if user == nil || !user.IsClient() {
		return nil, ErrCustomerNotFound
	}
	return user, nil
}

// VerifyCustomer marks a client account as verified and returns it
func (s *Service) VerifyCustomer(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.users.SetVerified(ctx, id, true); err != nil {
		return nil, s.storeError("verify customer", err)
	}
	user.IsVerified = true

	s.logger.Info("customer verified", zap.String("user_id", id.String()))
	return user, nil
}

// ListTransactions returns every transaction with its owner, newest first
func (s *Service) ListTransactions(ctx context.Context) ([]models.TransactionWithOwner, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	txs, err := s.transactions.ListAll(ctx)
	if err != nil {
		return nil, s.storeError("list transactions", err)
	}
	if txs == nil {
		txs = []models.TransactionWithOwner{}
	}
	return txs, nil
}

// DashboardStats computes the dashboard summary
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	customers, err := s.users.ListByRole(ctx, models.RoleClient)
	if err != nil {
		return nil, s.storeError("list customers", err)
	}
	summary, err := s.transactions.Summary(ctx)
	if err != nil {
		return nil, s.storeError("summarize transactions", err)
	}

	stats := &DashboardStats{
		TotalCustomers:      len(customers),
		TotalTransactions:   summary.Count,
		TotalDeposits:       summary.TotalDeposits,
		TotalWithdrawals:    summary.TotalWithdrawals,
		LowBalanceThreshold: s.lowBalance,
	}
	for _, c := range customers {
		if !c.IsVerified {
			stats.PendingVerifications++
		}
		if c.Balance < s.lowBalance {
			stats.LowBalanceCustomers++
		}
	}
	return stats, nil
}

func (s *Service) storeError(op string, err error) error {
	s.logger.Error("store failure", zap.String("op", op), zap.Error(err))
	return apperr.Wrap(ErrStoreUnavailable.Kind, ErrStoreUnavailable.Message, err)
}
