package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/internal/repo"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
)

// Repository reads catalog rows for cart and checkout flows. The catalog is
// owned by an upstream service; this side only consumes it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindByID returns the product or gorm.ErrRecordNotFound. Soft-deleted
	// rows are excluded by the gorm.DeletedAt convention.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository constructs a product repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
