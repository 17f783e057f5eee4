package address

import (
	"time"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

// AddressDTO is the wire shape of a saved address.
type AddressDTO struct {
	ID        uuid.UUID         `json:"id"`
	Type      enums.AddressType `json:"type"`
	IsDefault bool              `json:"isDefault"`
	types.Address
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ToDTO(row models.SavedAddress) AddressDTO {
	return AddressDTO{
		ID:        row.ID,
		Type:      row.Type,
		IsDefault: row.IsDefault,
		Address:   row.Address,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func ToDTOs(rows []models.SavedAddress) []AddressDTO {
	out := make([]AddressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out
}
