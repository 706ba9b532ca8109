package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/internal/customers"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	"github.com/veloxcommerce/velox-backend/pkg/enums"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
	"github.com/veloxcommerce/velox-backend/pkg/pagination"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT,
  phone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS user_wallets (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL UNIQUE,
  balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  balance_before NUMERIC NOT NULL,
  balance_after NUMERIC NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  order_id TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newWalletService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(&gormTxRunner{db: db}, NewRepository(db), customers.NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestGetOrCreateWalletIsIdempotent(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	customerID := uuid.New()

	first, err := svc.GetOrCreateWallet(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, customerID, first.CustomerID)
	assert.True(t, first.Balance.IsZero())

	second, err := svc.GetOrCreateWallet(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreditBonusCreatesWalletAndLedgerEntry(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	customerID := uuid.New()
	orderID := uuid.New()

	entry, err := svc.CreditBonus(context.Background(), CreditInput{
		CustomerID:  customerID,
		Amount:      decimal.RequireFromString("12.50"),
		Description: "Delivery bonus",
		OrderID:     &orderID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.WalletTransactionTypeCredit, entry.Type)
	assert.True(t, entry.BalanceBefore.IsZero())
	assert.True(t, entry.BalanceAfter.Equal(decimal.RequireFromString("12.50")))
	require.NotNil(t, entry.OrderID)
	assert.Equal(t, orderID, *entry.OrderID)

	wallet, err := svc.GetOrCreateWallet(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("12.50")))
}

func TestDebitWalletKeepsLedgerConsistent(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	customerID := uuid.New()

	_, err := svc.CreditBonus(context.Background(), CreditInput{
		CustomerID: customerID,
		Amount:     decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	entry, err := svc.DebitWallet(context.Background(), DebitInput{
		CustomerID:  customerID,
		Amount:      decimal.RequireFromString("20.00"),
		Description: "Payment for order",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.WalletTransactionTypeDebit, entry.Type)
	assert.True(t, entry.BalanceBefore.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, entry.BalanceAfter.Equal(decimal.RequireFromString("30.00")))

	wallet, err := svc.GetOrCreateWallet(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("30.00")))
}

func TestDebitWalletRejectsOverdraw(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	customerID := uuid.New()

	_, err := svc.CreditBonus(context.Background(), CreditInput{
		CustomerID: customerID,
		Amount:     decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	_, err = svc.DebitWallet(context.Background(), DebitInput{
		CustomerID: customerID,
		Amount:     decimal.RequireFromString("10.01"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10.00", details["available"])
	assert.Equal(t, "10.01", details["requested"])

	// balance untouched
	wallet, err := svc.GetOrCreateWallet(context.Background(), customerID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestDebitWalletWithoutWalletRowReportsZeroAvailable(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)

	_, err := svc.DebitWallet(context.Background(), DebitInput{
		CustomerID: uuid.New(),
		Amount:     decimal.RequireFromString("5.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestDebitWalletRejectsNonPositiveAmount(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)

	_, err := svc.DebitWallet(context.Background(), DebitInput{
		CustomerID: uuid.New(),
		Amount:     decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetTransactionHistoryPaginatesNewestFirst(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	svc := newWalletService(t, db)
	customerID := uuid.New()

	wallet, err := svc.GetOrCreateWallet(context.Background(), customerID)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := &models.WalletTransaction{
			WalletID:      wallet.ID,
			Type:          enums.WalletTransactionTypeCredit,
			Amount:        decimal.NewFromInt(int64(i + 1)),
			BalanceBefore: decimal.NewFromInt(int64(i)),
			BalanceAfter:  decimal.NewFromInt(int64(i + 1)),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.CreateTransaction(context.Background(), entry))
	}

	page, next, err := svc.GetTransactionHistory(context.Background(), customerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, page[1].Amount.Equal(decimal.NewFromInt(2)))
	require.NotEmpty(t, next)

	rest, last, err := svc.GetTransactionHistory(context.Background(), customerID, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.True(t, rest[0].Amount.Equal(decimal.NewFromInt(1)))
	assert.Empty(t, last)
}

func TestGetTransactionHistoryWithoutWalletReturnsEmpty(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)

	page, next, err := svc.GetTransactionHistory(context.Background(), uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Empty(t, next)
}
