package promo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/pkg/db/models"
)

// Repository manages promo codes and their redemption records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error)
	Create(ctx context.Context, promo *models.PromoCode) error
	Update(ctx context.Context, promo *models.PromoCode) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.PromoCode, error)
	// ClaimUsage atomically takes one usage slot. It reports false when the
	// code is inactive or its limit is already exhausted, without error.
	ClaimUsage(ctx context.Context, id uuid.UUID) (bool, error)
	CreateUsage(ctx context.Context, usage *models.PromoCodeUsage) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a promo repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).
		Where("lower(code) = ?", strings.ToLower(strings.TrimSpace(code))).
		First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) Create(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) Update(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Save(promo).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PromoCode{}, "id = ?", id).Error
}

func (r *repository) List(ctx context.Context) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&promos).Error; err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repository) ClaimUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ? AND is_active = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id, true).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateUsage(ctx context.Context, usage *models.PromoCodeUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}
