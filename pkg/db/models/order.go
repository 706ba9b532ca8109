package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloxcommerce/velox-backend/pkg/enums"
)

// Order is the frozen financial record produced from a cart at checkout.
// Money fields are never recomputed after creation; only Status, the derived
// timestamps and the bonus fields mutate afterwards.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID       uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index:orders_customer_idx"`
	RecipientName    string            `gorm:"column:recipient_name;not null"`
	RecipientPhone   string            `gorm:"column:recipient_phone;not null;default:''"`
	DeliveryAddress  string            `gorm:"column:delivery_address;not null"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	PromoCodeID      *uuid.UUID        `gorm:"column:promo_code_id;type:uuid"`
	PromoDiscount    *decimal.Decimal  `gorm:"column:promo_discount;type:numeric(12,2)"`
	WalletDiscount   *decimal.Decimal  `gorm:"column:wallet_discount;type:numeric(12,2)"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	BonusAwarded     bool              `gorm:"column:bonus_awarded;not null;default:false"`
	BonusAmount      *decimal.Decimal  `gorm:"column:bonus_amount;type:numeric(12,2)"`
	ConfirmedAt      *time.Time        `gorm:"column:confirmed_at"`
	DeliveredAt      *time.Time        `gorm:"column:delivered_at"`
	CancelledAt      *time.Time        `gorm:"column:cancelled_at"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
