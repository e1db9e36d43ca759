// Package ledger applies deposits and withdrawals to client balances
package ledger

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/findosh/northbank/internal/config"
	"github.com/findosh/northbank/internal/models"
	"github.com/findosh/northbank/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// casAttempts bounds re-reads after a stale compare-and-swap
	casAttempts = 3

	maxDescriptionLength = 255

	reasonInsufficient = "insufficient balance"
	reasonStore        = "store failure"
	reasonTooLarge     = "amount exceeds maximum balance"
)

var (
	ErrInvalidAmount       = apperr.New(apperr.KindInvalidAmount, "Amount must be greater than zero")
	ErrAmountTooLarge      = apperr.New(apperr.KindInvalidAmount, "Amount exceeds the maximum balance")
	ErrDescriptionTooLong  = apperr.New(apperr.KindValidation, "Description is too long")
	ErrInsufficientBalance = apperr.New(apperr.KindInsufficientBalance, "Insufficient balance")
	ErrAccountNotFound     = apperr.New(apperr.KindNotFound, "Account not found")
	ErrStoreUnavailable    = apperr.New(apperr.KindStoreUnavailable, "Service temporarily unavailable")
)

// AccountStore reads and compare-and-swaps balances
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, oldBalance, newBalance models.Money) error
}

// TransactionLog records every balance mutation attempt
type TransactionLog interface {
	Append(ctx context.Context, tx *models.Transaction) error
	Finalize(ctx context.Context, id uuid.UUID, status models.TransactionStatus, reason string, at time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
}

// Service handles ledger operations
type Service struct {
	accounts     AccountStore
	log          TransactionLog
	locks        *keyedMutex
	logger       *zap.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewService creates a new ledger service
func NewService(cfg *config.Config, accounts AccountStore, log TransactionLog, logger *zap.Logger) *Service {
	return &Service{
		accounts:     accounts,
		log:          log,
		locks:        newKeyedMutex(),
		logger:       logger.Named("ledger"),
		storeTimeout: cfg.StoreTimeout,
		now:          time.Now,
	}
}

// Deposit credits amount to a client's balance
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount models.Money, description string) (*models.Transaction, error) {
	return s.apply(ctx, userID, models.TransactionDeposit, amount, description, func(balance models.Money) (models.Money, error) {
		next, ok := balance.Add(amount)
		if !ok {
			return 0, ErrAmountTooLarge
		}
		return next, nil
	})
}

// Withdraw debits amount from a client's balance. A withdrawal larger than
// the balance is recorded as a failed transaction and changes nothing else.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount models.Money, description string) (*models.Transaction, error) {
	return s.apply(ctx, userID, models.TransactionWithdrawal, amount, description, func(balance models.Money) (models.Money, error) {
		if amount > balance {
			return 0, ErrInsufficientBalance
		}
		next, _ := balance.Sub(amount)
		return next, nil
	})
}

// GetBalance returns a client's current balance
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (models.Money, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.loadClient(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

// ListTransactions returns a user's transactions, newest first
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	txs, err := s.log.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.storeError("list transactions", err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// apply runs one mutation inside the user's critical section: record a
// pending transaction, swap the balance, then finalize the transaction.
func (s *Service) apply(ctx context.Context, userID uuid.UUID, typ models.TransactionType, amount models.Money, description string, next func(models.Money) (models.Money, error)) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}

	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		return nil, s.storeError("wait for account lock", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.loadClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	// overflow is a caller error, reject it before anything is recorded
	if typ == models.TransactionDeposit {
		if _, err := next(user.Balance); err != nil {
			return nil, err
		}
	}

	tx := models.NewTransaction(userID, typ, amount, description)
	if err := s.log.Append(ctx, tx); err != nil {
		return nil, s.storeError("append transaction", err)
	}

	before, after, err := s.swapBalance(ctx, user, next)
	if err != nil {
		reason := reasonStore
		switch {
		case errors.Is(err, ErrInsufficientBalance):
			reason = reasonInsufficient
		case errors.Is(err, ErrAmountTooLarge):
			reason = reasonTooLarge
		}
		s.fail(ctx, tx, reason)
		return nil, s.storeError("update balance", err)
	}

	completedAt := s.now().UTC()
	if err := s.log.Finalize(ctx, tx.ID, models.TransactionCompleted, "", completedAt); err != nil {
		s.revert(ctx, userID, after, before)
		s.fail(ctx, tx, reasonStore)
		return nil, s.storeError("finalize transaction", err)
	}

	tx.Status = models.TransactionCompleted
	tx.CompletedAt = &completedAt
	s.logger.Info("transaction completed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("type", string(typ)),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", after),
	)
	return tx, nil
}

// swapBalance compare-and-swaps the balance, re-reading after a lost race
func (s *Service) swapBalance(ctx context.Context, user *models.User, next func(models.Money) (models.Money, error)) (models.Money, models.Money, error) {
	balance := user.Balance
	for attempt := 1; ; attempt++ {
		updated, err := next(balance)
		if err != nil {
			return 0, 0, err
		}

		err = s.accounts.UpdateBalance(ctx, user.ID, balance, updated)
		if err == nil {
			return balance, updated, nil
		}
		if !errors.Is(err, storage.ErrStaleBalance) || attempt == casAttempts {
			return 0, 0, err
		}

		fresh, err := s.accounts.GetByID(ctx, user.ID)
		if err != nil {
			return 0, 0, err
		}
		if fresh == nil {
			return 0, 0, ErrAccountNotFound
		}
		balance = fresh.Balance
	}
}

// fail marks tx failed even when the request context is already gone, so no
// transaction stays pending
func (s *Service) fail(ctx context.Context, tx *models.Transaction, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	at := s.now().UTC()
	if err := s.log.Finalize(ctx, tx.ID, models.TransactionFailed, reason, at); err != nil {
		s.logger.Error("failed to mark transaction failed",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
		return
	}
	tx.Status = models.TransactionFailed
	tx.FailureReason = reason
	tx.CompletedAt = &at
}

func (s *Service) revert(ctx context.Context, userID uuid.UUID, from, to models.Money) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	if err := s.accounts.UpdateBalance(ctx, userID, from, to); err != nil {
		s.logger.Error("failed to revert balance",
			zap.String("user_id", userID.String()),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err),
		)
	}
}

// loadClient returns the user only if it is a client; admins have no balance
func (s *Service) loadClient(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, s.storeError("find account", err)
	}
	if user == nil || !user.IsClient() {
		return nil, ErrAccountNotFound
	}
	return user, nil
}

// storeError passes ledger errors through and wraps everything else
func (s *Service) storeError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("store failure", zap.String("op", op), zap.Error(err))
	return apperr.Wrap(ErrStoreUnavailable.Kind, ErrStoreUnavailable.Message, err)
}
