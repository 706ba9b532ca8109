package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Postgres fills id columns via gen_random_uuid(). These hooks keep inserts
// working on databases without that default, such as SQLite in tests.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Customer) BeforeCreate(*gorm.DB) error          { ensureID(&c.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error           { ensureID(&p.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error              { ensureID(&c.ID); return nil }
func (c *CartItem) BeforeCreate(*gorm.DB) error          { ensureID(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error             { ensureID(&o.ID); return nil }
func (o *OrderItem) BeforeCreate(*gorm.DB) error         { ensureID(&o.ID); return nil }
func (w *UserWallet) BeforeCreate(*gorm.DB) error        { ensureID(&w.ID); return nil }
func (w *WalletTransaction) BeforeCreate(*gorm.DB) error { ensureID(&w.ID); return nil }
func (p *PromoCode) BeforeCreate(*gorm.DB) error         { ensureID(&p.ID); return nil }
func (p *PromoCodeUsage) BeforeCreate(*gorm.DB) error    { ensureID(&p.ID); return nil }
