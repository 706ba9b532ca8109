package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog row the pipeline reads prices and stock from.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	SKU           string           `gorm:"column:sku;not null;uniqueIndex"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	StockQty      int              `gorm:"column:stock_qty;not null;default:0"`
	IsActive      bool             `gorm:"column:is_active;not null"`
	DeletedAt     gorm.DeletedAt   `gorm:"column:deleted_at"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the discounted price when one is set, else the regular price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() && p.DiscountPrice.LessThan(p.Price) {
		return *p.DiscountPrice
	}
	return p.Price
}
