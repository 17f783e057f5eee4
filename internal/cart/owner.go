package cart

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

// Owner identifies who is shopping: a signed-in user, a guest session, or a
// user still holding the session they shopped under as a guest.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

// Normalized trims the session id.
func (o Owner) Normalized() Owner {
	o.SessionID = strings.TrimSpace(o.SessionID)
	return o
}

// Empty reports whether the owner carries no identity at all.
func (o Owner) Empty() bool {
	return o.UserID == nil && strings.TrimSpace(o.SessionID) == ""
}

// Owns reports whether the cart is addressable by this owner.
func (o Owner) Owns(c *models.Cart) bool {
	if c == nil {
		return false
	}
	if o.UserID != nil && c.UserID != nil && *o.UserID == *c.UserID {
		return true
	}
	if o.SessionID == "" || c.SessionID == nil || *c.SessionID != o.SessionID {
		return false
	}
	return c.UserID == nil || o.UserID == nil || *c.UserID == *o.UserID
}

// ResolveActive finds the owner's active cart: the user's own cart first,
// then the session cart. A signed-in user adopts an unowned session cart
// atomically. It returns nil without error when there is no cart.
func ResolveActive(ctx context.Context, repo CartRepository, owner Owner) (*models.Cart, error) {
	owner = owner.Normalized()
	if owner.UserID != nil {
		found, err := repo.FindActiveByUser(ctx, *owner.UserID)
		if err == nil {
			return found, nil
		}
		if !db.IsNotFound(err) {
			return nil, err
		}
	}
	if owner.SessionID == "" {
		return nil, nil
	}

	found, err := repo.FindActiveBySession(ctx, owner.SessionID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if owner.UserID == nil || found.UserID != nil {
		if !owner.Owns(found) {
			return nil, nil
		}
		return found, nil
	}

	adopted, err := repo.Adopt(ctx, found.ID, *owner.UserID)
	if err != nil {
		return nil, err
	}
	reloaded, err := repo.FindByID(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if !adopted && !owner.Owns(reloaded) {
		return nil, nil
	}
	return reloaded, nil
}

// LoadOwned loads a cart by id and hides carts the owner cannot address.
func LoadOwned(ctx context.Context, repo CartRepository, cartID uuid.UUID, owner Owner) (*models.Cart, error) {
	found, err := repo.FindByID(ctx, cartID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, cartNotFound()
		}
		return nil, err
	}
	if !owner.Normalized().Owns(found) {
		return nil, cartNotFound()
	}
	return found, nil
}

func cartNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found")
}
