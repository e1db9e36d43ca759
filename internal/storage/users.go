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

const userColumns = `id, name, email, password_hash, role, device_id, balance, is_verified, created_at, updated_at, last_login`

// UserRepository provides user data access
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, device_id, balance, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID.String(),
		user.Name,
		models.NormalizeEmail(user.Email),
		user.PasswordHash,
		string(user.Role),
		nullString(user.DeviceID),
		int64(user.Balance),
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

// ListByRole returns all users with the given role, newest first
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateBalance sets the balance to newBalance only if it still equals
// oldBalance. It returns ErrStaleBalance when the row did not match.
func (r *UserRepository) UpdateBalance(ctx context.Context, id uuid.UUID, oldBalance, newBalance models.Money) error {
	query := `UPDATE users SET balance = ?, updated_at = ? WHERE id = ? AND balance = ?`
	res, err := r.db.ExecContext(ctx, query, int64(newBalance), time.Now().UTC(), id.String(), int64(oldBalance))
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return expectOneRow(res, ErrStaleBalance)
}

// SetVerified updates the verification flag
func (r *UserRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, verified, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to set verified: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

// UpdateLastLogin records a successful authentication
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, at.UTC(), time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

// UpdateDeviceID binds a device identifier to the user
func (r *UserRepository) UpdateDeviceID(ctx context.Context, id uuid.UUID, deviceID string) error {
	query := `UPDATE users SET device_id = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, nullString(deviceID), time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update device id: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var id, role string
	var deviceID sql.NullString
	var balance int64
	var lastLogin sql.NullTime

	err := row.Scan(
		&id,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&deviceID,
		&balance,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user id: %w", err)
	}
	user.Role = models.Role(role)
	user.Balance = models.Money(balance)
	user.DeviceID = deviceID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}

	return &user, nil
}

func expectOneRow(res sql.Result, errNoRows error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return errNoRows
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
