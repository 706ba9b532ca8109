package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoCodeUsage is an append-only audit record of a single redemption.
type PromoCodeUsage struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromoCodeID    uuid.UUID       `gorm:"column:promo_code_id;type:uuid;not null;index:promo_code_usages_promo_idx"`
	CustomerID     *uuid.UUID      `gorm:"column:customer_id;type:uuid"`
	OrderID        *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	OrderTotal     decimal.Decimal `gorm:"column:order_total;type:numeric(12,2);not null"`
	UsedAt         time.Time       `gorm:"column:used_at;autoCreateTime"`
}
