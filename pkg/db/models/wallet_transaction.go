package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloxcommerce/velox-backend/pkg/enums"
)

// WalletTransaction is an append-only ledger entry proving how a wallet
// balance was reached. BalanceAfter of the newest entry always equals the
// wallet's current balance.
type WalletTransaction struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID      uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index:wallet_transactions_wallet_idx"`
	Type          enums.WalletTransactionType `gorm:"column:type;not null"`
	Amount        decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceBefore decimal.Decimal             `gorm:"column:balance_before;type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal             `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Description   string                      `gorm:"column:description;not null;default:''"`
	OrderID       *uuid.UUID                  `gorm:"column:order_id;type:uuid"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
