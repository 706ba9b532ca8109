package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoCode is a percentage-discount token. Codes are unique case-insensitively.
type PromoCode struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code       string          `gorm:"column:code;not null"`
	Percent    decimal.Decimal `gorm:"column:percent;type:numeric(5,2);not null"`
	ExpiresAt  *time.Time      `gorm:"column:expires_at"`
	IsActive   bool            `gorm:"column:is_active;not null"`
	UsageLimit *int            `gorm:"column:usage_limit"`
	UsageCount int             `gorm:"column:usage_count;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
