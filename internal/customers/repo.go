package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veloxcommerce/velox-backend/internal/repo"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
)

// Repository persists customer rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	// Ensure creates the customer row if it does not exist yet. Carts, wallets
	// and orders all reference customers by foreign key, so callers invoke this
	// before writing rows for an identity seen for the first time.
	Ensure(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	repo.Base
}

// NewRepository constructs a customer repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) Ensure(ctx context.Context, id uuid.UUID) error {
	customer := models.Customer{ID: id}
	return r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&customer).Error
}
