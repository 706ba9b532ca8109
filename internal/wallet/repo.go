package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	"github.com/veloxcommerce/velox-backend/pkg/pagination"
)

// Repository manages wallet rows and their append-only transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.UserWallet, error)
	// FindByCustomerForUpdate locks the wallet row for the duration of the
	// surrounding transaction so concurrent debits serialize.
	FindByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) (*models.UserWallet, error)
	Create(ctx context.Context, wallet *models.UserWallet) error
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.UserWallet, error) {
	var wallet models.UserWallet
	if err := r.db.WithContext(ctx).First(&wallet, "customer_id = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) (*models.UserWallet, error) {
	var wallet models.UserWallet
	query := r.db.WithContext(ctx)
	// SQLite has no row locks; its transactions already serialize writers.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&wallet, "customer_id = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) Create(ctx context.Context, wallet *models.UserWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.UserWallet{}).
		Where("id = ?", walletID).
		Update("balance", balance).Error
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.WalletTransaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
