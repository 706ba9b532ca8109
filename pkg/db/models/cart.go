package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the mutable pre-purchase basket, one per customer identity.
// It is emptied, never deleted, when an order is created from it.
type Cart struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	AppliedPromoID *uuid.UUID       `gorm:"column:applied_promo_id;type:uuid"`
	PromoPercent   *decimal.Decimal `gorm:"column:promo_percent;type:numeric(5,2)"`
	Items          []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
