package validators

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

// ParseUUID parses a path or query identifier.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
