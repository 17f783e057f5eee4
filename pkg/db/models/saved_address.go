package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

// SavedAddress is a user-owned address book entry. At most one entry per
// (user, type) has IsDefault set.
type SavedAddress struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.AddressType `gorm:"column:type;type:varchar(16);not null"`
	IsDefault bool              `gorm:"column:is_default;not null"`
	types.Address
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
