package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType carries the direction of a ledger movement
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus tracks a ledger record through its lifecycle
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// IsTerminal reports whether no further status change is allowed
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionFailed
}

// Transaction is an immutable ledger record. Amount is always positive;
// direction is carried by Type.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"userId"`
	Type          TransactionType   `json:"type"`
	Amount        Money             `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Description   string            `json:"description,omitempty"`
	FailureReason string            `json:"failureReason,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

// NewTransaction creates a pending transaction with generated ID
func NewTransaction(userID uuid.UUID, typ TransactionType, amount Money, description string) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Status:      TransactionPending,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// TransactionOwner is the public identity of the user a transaction belongs to
type TransactionOwner struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// TransactionWithOwner joins a transaction with its owner for admin views
type TransactionWithOwner struct {
	Transaction
	Owner TransactionOwner `json:"user"`
}
