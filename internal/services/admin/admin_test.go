package admin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/findosh/northbank/internal/apperr"
	"github.com/findosh/northbank/internal/config"
	"github.com/findosh/northbank/internal/models"
	"github.com/findosh/northbank/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc   *Service
	users *storage.UserRepository
	txs   *storage.TransactionRepository
}

func testConfig() *config.Config {
	return &config.Config{StoreTimeout: time.Second, LowBalanceThreshold: decimal.NewFromInt(100)}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	users := storage.NewUserRepository(db.DB)
	txs := storage.NewTransactionRepository(db.DB)
	svc, err := NewService(testConfig(), users, txs, zap.NewNop())
	require.NoError(t, err)
	return &fixture{svc: svc, users: users, txs: txs}
}

func (f *fixture) addUser(t *testing.T, email string, role models.Role, balance string, verified bool) *models.User {
	t.Helper()
	u := models.NewUser("User "+email, email, "hash", role)
	u.Balance = models.MustParseMoney(balance)
	u.IsVerified = verified
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) addTx(t *testing.T, userID uuid.UUID, typ models.TransactionType, amount string, status models.TransactionStatus) {
	t.Helper()
	ctx := context.Background()
	tx := models.NewTransaction(userID, typ, models.MustParseMoney(amount), "")
	require.NoError(t, f.txs.Append(ctx, tx))
	if status.IsTerminal() {
		require.NoError(t, f.txs.Finalize(ctx, tx.ID, status, "", time.Now()))
	}
}

func TestListAndGetCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "admin@bank.test", models.RoleAdmin, "0", true)
	client := f.addUser(t, "client@bank.test", models.RoleClient, "10.00", false)

	customers, err := f.svc.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, client.ID, customers[0].ID)

	got, err := f.svc.GetCustomer(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "client@bank.test", got.Email)

	_, err = f.svc.GetCustomer(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	_, err = f.svc.GetCustomer(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestListCustomers_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)
	customers, err := f.svc.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, customers)
	assert.Empty(t, customers)
}

func TestVerifyCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, "client@bank.test", models.RoleClient, "0", false)
	admin := f.addUser(t, "admin@bank.test", models.RoleAdmin, "0", true)

	got, err := f.svc.VerifyCustomer(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	stored, err := f.users.GetByID(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	_, err = f.svc.VerifyCustomer(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestListTransactions_WithOwner(t *testing.T) {
	f := newFixture(t)
	client := f.addUser(t, "client@bank.test", models.RoleClient, "0", false)
	f.addTx(t, client.ID, models.TransactionDeposit, "25.00", models.TransactionCompleted)

	txs, err := f.svc.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, client.ID, txs[0].Owner.ID)
	assert.Equal(t, "client@bank.test", txs[0].Owner.Email)
	assert.Equal(t, models.RoleClient, txs[0].Owner.Role)
	assert.Equal(t, "25.00", txs[0].Amount.String())
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "admin@bank.test", models.RoleAdmin, "0", true)
	rich := f.addUser(t, "rich@bank.test", models.RoleClient, "500.00", true)
	poor := f.addUser(t, "poor@bank.test", models.RoleClient, "99.99", false)
	f.addUser(t, "edge@bank.test", models.RoleClient, "100.00", false)

	f.addTx(t, rich.ID, models.TransactionDeposit, "500.00", models.TransactionCompleted)
	f.addTx(t, poor.ID, models.TransactionDeposit, "150.00", models.TransactionCompleted)
	f.addTx(t, poor.ID, models.TransactionWithdrawal, "50.01", models.TransactionCompleted)
	f.addTx(t, poor.ID, models.TransactionWithdrawal, "1000.00", models.TransactionFailed)
	f.addTx(t, poor.ID, models.TransactionDeposit, "7.00", models.TransactionPending)

	stats, err := f.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCustomers)
	assert.Equal(t, 5, stats.TotalTransactions)
	assert.Equal(t, "650.00", stats.TotalDeposits.String())
	assert.Equal(t, "50.01", stats.TotalWithdrawals.String())
	assert.Equal(t, 2, stats.PendingVerifications)
	assert.Equal(t, 1, stats.LowBalanceCustomers)
	assert.Equal(t, "100.00", stats.LowBalanceThreshold.String())
}

func TestNewService_RejectsSubCentThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.LowBalanceThreshold = decimal.RequireFromString("0.001")
	_, err := NewService(cfg, nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE role").WillReturnError(errors.New("disk I/O error"))

	svc, err := NewService(testConfig(), storage.NewUserRepository(db), storage.NewTransactionRepository(db), zap.NewNop())
	require.NoError(t, err)

	_, err = svc.DashboardStats(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, apperr.KindStoreUnavailable, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
