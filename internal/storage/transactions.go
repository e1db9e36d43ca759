package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/findosh/northbank/internal/models"
	"github.com/google/uuid"
)

const transactionColumns = `t.id, t.user_id, t.type, t.amount, t.status, t.description, t.failure_reason, t.created_at, t.completed_at`

// TransactionRepository is the append-only transaction log
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// TransactionSummary aggregates the log for reporting
type TransactionSummary struct {
	Count            int
	TotalDeposits    models.Money
	TotalWithdrawals models.Money
}

// Append inserts a new transaction record
func (r *TransactionRepository) Append(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, status, description, failure_reason, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var completedAt sql.NullTime
	if tx.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *tx.CompletedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		tx.ID.String(),
		tx.UserID.String(),
		string(tx.Type),
		int64(tx.Amount),
		string(tx.Status),
		nullString(tx.Description),
		nullString(tx.FailureReason),
		tx.CreatedAt,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Finalize moves a pending transaction to a terminal status. Terminal rows
// are never touched again: finalizing one returns ErrTransactionFinal.
func (r *TransactionRepository) Finalize(ctx context.Context, id uuid.UUID, status models.TransactionStatus, reason string, at time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot finalize transaction with status %q", status)
	}

	query := `
		UPDATE transactions SET status = ?, failure_reason = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		string(status),
		nullString(reason),
		at.UTC(),
		id.String(),
		string(models.TransactionPending),
	)
	if err != nil {
		return fmt.Errorf("failed to finalize transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return ErrTransactionFinal
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = ?`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tx, err
}

// ListByUser returns a user's transactions, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.user_id = ?
		ORDER BY t.created_at DESC, t.rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// ListAll returns every transaction joined with its owner, newest first
func (r *TransactionRepository) ListAll(ctx context.Context) ([]models.TransactionWithOwner, error) {
	query := `
		SELECT ` + transactionColumns + `, u.id, u.name, u.email, u.role
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		ORDER BY t.created_at DESC, t.rowid DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.TransactionWithOwner
	for rows.Next() {
		var row transactionRow
		var ownerID, ownerRole string
		var item models.TransactionWithOwner

		dest := append(row.dest(), &ownerID, &item.Owner.Name, &item.Owner.Email, &ownerRole)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx, err := row.toModel()
		if err != nil {
			return nil, err
		}
		item.Transaction = *tx
		item.Owner.ID, err = uuid.Parse(ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse owner id: %w", err)
		}
		item.Owner.Role = models.Role(ownerRole)
		out = append(out, item)
	}
	return out, rows.Err()
}

// Summary counts all transactions and totals completed amounts by type
func (r *TransactionRepository) Summary(ctx context.Context) (*TransactionSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN type = 'deposit' AND status = 'completed' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = 'withdrawal' AND status = 'completed' THEN amount END), 0)
		FROM transactions
	`
	var count int
	var deposits, withdrawals int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &deposits, &withdrawals); err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return &TransactionSummary{
		Count:            count,
		TotalDeposits:    models.Money(deposits),
		TotalWithdrawals: models.Money(withdrawals),
	}, nil
}

type transactionRow struct {
	id, userID, typ, status string
	amount                  int64
	description, reason     sql.NullString
	createdAt               time.Time
	completedAt             sql.NullTime
}

func (r *transactionRow) dest() []any {
	return []any{&r.id, &r.userID, &r.typ, &r.amount, &r.status, &r.description, &r.reason, &r.createdAt, &r.completedAt}
}

func (r *transactionRow) toModel() (*models.Transaction, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction id: %w", err)
	}
	userID, err := uuid.Parse(r.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user id: %w", err)
	}

	tx := &models.Transaction{
		ID:            id,
		UserID:        userID,
		Type:          models.TransactionType(r.typ),
		Amount:        models.Money(r.amount),
		Status:        models.TransactionStatus(r.status),
		Description:   r.description.String,
		FailureReason: r.reason.String,
		CreatedAt:     r.createdAt,
	}
	if r.completedAt.Valid {
		t := r.completedAt.Time
		tx.CompletedAt = &t
	}
	return tx, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var r transactionRow
	if err := row.Scan(r.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return r.toModel()
}
