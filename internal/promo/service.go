package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/pkg/db"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
)

// Service exposes promo code validation and administration.
type Service interface {
	Validate(ctx context.Context, code string) (*models.PromoCode, error)
	Create(ctx context.Context, input CreateInput) (*models.PromoCode, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.PromoCode, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.PromoCode, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// CreateInput carries the fields for a new promo code.
type CreateInput struct {
	Code       string
	Percent    decimal.Decimal
	ExpiresAt  *time.Time
	IsActive   *bool
	UsageLimit *int
}

// UpdateInput carries partial updates; nil fields are left untouched.
type UpdateInput struct {
	Percent    *decimal.Decimal
	ExpiresAt  *time.Time
	IsActive   *bool
	UsageLimit *int
}

// NewService wires a promo service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, code string) (*models.PromoCode, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}

	if err := checkUsable(promo, s.now()); err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PromoCode, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	if err := validatePercent(input.Percent); err != nil {
		return nil, err
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}

	promo := &models.PromoCode{
		Code:       code,
		Percent:    input.Percent,
		ExpiresAt:  input.ExpiresAt,
		IsActive:   true,
		UsageLimit: input.UsageLimit,
	}
	if input.IsActive != nil {
		promo.IsActive = *input.IsActive
	}

	if err := s.repo.Create(ctx, promo); err != nil {
		if db.IsUniqueViolation(err, "promo_codes_code_ci_uniq") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promo code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promo code")
	}
	return promo, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.PromoCode, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}

	if input.Percent != nil {
		if err := validatePercent(*input.Percent); err != nil {
			return nil, err
		}
		promo.Percent = *input.Percent
	}
	if input.ExpiresAt != nil {
		promo.ExpiresAt = input.ExpiresAt
	}
	if input.IsActive != nil {
		promo.IsActive = *input.IsActive
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
		}
		if *input.UsageLimit < promo.UsageCount {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit cannot be below current usage count")
		}
		promo.UsageLimit = input.UsageLimit
	}

	if err := s.repo.Update(ctx, promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update promo code")
	}
	return promo, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	if err := s.repo.Delete(ctx, promo.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete promo code")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]models.PromoCode, error) {
	promos, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promo codes")
	}
	return promos, nil
}

// Redeem re-validates a promo inside the caller's transaction and takes a
// usage slot before recording the redemption. Checkout calls this with its
// transaction-scoped repository so the slot claim commits or rolls back with
// the order itself.
func Redeem(ctx context.Context, repo Repository, now time.Time, promoID uuid.UUID, usage *models.PromoCodeUsage) (*models.PromoCode, error) {
	promo, err := repo.FindByID(ctx, promoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	if err := checkUsable(promo, now); err != nil {
		return nil, err
	}

	claimed, err := repo.ClaimUsage(ctx, promo.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim promo usage")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code usage limit reached")
	}

	usage.PromoCodeID = promo.ID
	if err := repo.CreateUsage(ctx, usage); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record promo usage")
	}
	return promo, nil
}

func checkUsable(promo *models.PromoCode, now time.Time) error {
	if !promo.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code is not active")
	}
	if promo.ExpiresAt != nil && !promo.ExpiresAt.After(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code has expired")
	}
	if promo.UsageLimit != nil && promo.UsageCount >= *promo.UsageLimit {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code usage limit reached")
	}
	return nil
}

func validatePercent(percent decimal.Decimal) error {
	if !percent.IsPositive() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percent must be greater than 0 and at most 100")
	}
	return nil
}
