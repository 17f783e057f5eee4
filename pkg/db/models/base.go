package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a random id when the caller left it empty. Postgres also
// defaults ids, but sqlite (used in tests) does not.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (p *Product) BeforeCreate(*gorm.DB) error        { ensureID(&p.ID); return nil }
func (v *ProductVariant) BeforeCreate(*gorm.DB) error { ensureID(&v.ID); return nil }
func (c *Cart) BeforeCreate(*gorm.DB) error           { ensureID(&c.ID); return nil }
func (i *CartItem) BeforeCreate(*gorm.DB) error       { ensureID(&i.ID); return nil }
func (d *CartDiscount) BeforeCreate(*gorm.DB) error   { ensureID(&d.ID); return nil }
func (d *Discount) BeforeCreate(*gorm.DB) error       { ensureID(&d.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error          { ensureID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error      { ensureID(&i.ID); return nil }
func (d *OrderDiscount) BeforeCreate(*gorm.DB) error  { ensureID(&d.ID); return nil }
func (a *SavedAddress) BeforeCreate(*gorm.DB) error   { ensureID(&a.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error    { ensureID(&e.ID); return nil }
func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error      { ensureID(&d.ID); return nil }

// All lists every persisted model, in dependency order, for sqlite
// AutoMigrate in tests.
func All() []any {
	return []any{
		&Product{},
		&ProductVariant{},
		&Discount{},
		&Cart{},
		&CartItem{},
		&CartDiscount{},
		&Order{},
		&OrderItem{},
		&OrderDiscount{},
		&SavedAddress{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
