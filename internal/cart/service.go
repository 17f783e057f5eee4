package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/discounts"
	product "github.com/wixandwax/storefront-backend/internal/products"
	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the shopper's active cart.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*CartDTO, error)
	AddItem(ctx context.Context, owner Owner, variantID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItem(ctx context.Context, owner Owner, cartID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner Owner, cartID, itemID uuid.UUID) (*CartDTO, error)
	ApplyDiscount(ctx context.Context, owner Owner, cartID uuid.UUID, code string) (*CartDTO, error)
	RemoveDiscount(ctx context.Context, owner Owner, cartID, discountID uuid.UUID) (*CartDTO, error)
	AdoptGuestCart(ctx context.Context, cartID, userID uuid.UUID) (bool, error)
}

type service struct {
	repo      CartRepository
	tx        txRunner
	variants  *product.Repository
	discounts *discounts.Repository
	currency  string
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the cart service.
func NewService(repo CartRepository, tx txRunner, variants *product.Repository, discountRepo *discounts.Repository, currency string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if variants == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if discountRepo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if currency == "" {
		currency = "INR"
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		tx:        tx,
		variants:  variants,
		discounts: discountRepo,
		currency:  currency,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) GetCart(ctx context.Context, owner Owner) (*CartDTO, error) {
	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.activeOrCreate(ctx, s.repo.WithTx(tx), owner)
		out = found
		return err
	})
	if err != nil {
		return nil, s.wrap(err, "Failed to fetch cart")
	}
	return s.render(out), nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, variantID uuid.UUID, quantity int) (*CartDTO, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variantId required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.activeOrCreate(ctx, repo, owner)
		if err != nil {
			return err
		}
		variant, err := s.purchasableVariant(ctx, tx, variantID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemByVariant(ctx, current.ID, variantID)
		switch {
		case err == nil:
			total := existing.Quantity + quantity
			if total > variant.Quantity {
				return insufficientStock(variant)
			}
			if err := repo.SetItemQuantity(ctx, existing.ID, total, variant.Price); err != nil {
				return err
			}
		case db.IsNotFound(err):
			if quantity > variant.Quantity {
				return insufficientStock(variant)
			}
			item := &models.CartItem{
				CartID:    current.ID,
				VariantID: variant.ID,
				Quantity:  quantity,
				Price:     variant.Price,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}

		out, err = repo.FindByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, s.wrap(err, "Failed to add item to cart")
	}
	return s.render(out), nil
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, cartID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.ownedActive(ctx, repo, cartID, owner)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, current.ID, itemID)
		if err != nil {
			if db.IsNotFound(err) {
				return itemNotFound()
			}
			return err
		}

		if quantity == 0 {
			if err := repo.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
		} else {
			variant, err := s.purchasableVariant(ctx, tx, item.VariantID)
			if err != nil {
				return err
			}
			if quantity > variant.Quantity {
				return insufficientStock(variant)
			}
			if err := repo.SetItemQuantity(ctx, item.ID, quantity, variant.Price); err != nil {
				return err
			}
		}

		out, err = repo.FindByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, s.wrap(err, "Failed to update cart item")
	}
	return s.render(out), nil
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, cartID, itemID uuid.UUID) (*CartDTO, error) {
	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.ownedActive(ctx, repo, cartID, owner)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, current.ID, itemID)
		if err != nil {
			if db.IsNotFound(err) {
				return itemNotFound()
			}
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		out, err = repo.FindByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, s.wrap(err, "Failed to remove cart item")
	}
	return s.render(out), nil
}

// ApplyDiscount validates the code against the cart as it is now. Checkout
// validates it again.
func (s *service) ApplyDiscount(ctx context.Context, owner Owner, cartID uuid.UUID, code string) (*CartDTO, error) {
	code = discounts.NormalizeCode(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.ownedActive(ctx, repo, cartID, owner)
		if err != nil {
			return err
		}
		discount, err := s.discounts.WithTx(tx).FindByCode(ctx, code)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "Invalid discount code").WithReason(pkgerrors.ReasonDiscountInvalid)
			}
			return err
		}
		if ok, reason := discounts.Check(s.now(), LiveSubtotal(current), *discount); !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, discountMessage(reason)).
				WithReason(pkgerrors.ReasonDiscountInvalid).
				WithDetails(map[string]any{"code": discount.Code, "reason": reason})
		}
		if _, err := repo.AttachDiscount(ctx, current.ID, discount.ID); err != nil {
			return err
		}
		out, err = repo.FindByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, s.wrap(err, "Failed to apply discount")
	}
	return s.render(out), nil
}

func (s *service) RemoveDiscount(ctx context.Context, owner Owner, cartID, discountID uuid.UUID) (*CartDTO, error) {
	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.ownedActive(ctx, repo, cartID, owner)
		if err != nil {
			return err
		}
		if err := repo.DetachDiscount(ctx, current.ID, discountID); err != nil {
			return err
		}
		out, err = repo.FindByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, s.wrap(err, "Failed to remove discount")
	}
	return s.render(out), nil
}

// AdoptGuestCart hands an unowned cart to userID. It reports false when the
// cart already had an owner.
func (s *service) AdoptGuestCart(ctx context.Context, cartID, userID uuid.UUID) (bool, error) {
	if cartID == uuid.Nil || userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "cart id and user id required")
	}
	adopted, err := s.repo.Adopt(ctx, cartID, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to adopt cart")
	}
	if adopted {
		fields := map[string]any{"cart_id": cartID.String(), "user_id": userID.String()}
		s.logg.Info(s.logg.WithFields(ctx, fields), "cart.adopted")
	}
	return adopted, nil
}

func (s *service) activeOrCreate(ctx context.Context, repo CartRepository, owner Owner) (*models.Cart, error) {
	owner = owner.Normalized()
	if owner.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sessionId required")
	}
	found, err := ResolveActive(ctx, repo, owner)
	if err != nil || found != nil {
		return found, err
	}

	created := &models.Cart{
		UserID:   owner.UserID,
		Status:   enums.CartStatusActive,
		Currency: s.currency,
	}
	if owner.SessionID != "" {
		session := owner.SessionID
		created.SessionID = &session
	}
	if err := repo.Create(ctx, created); err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, created.ID)
}

func (s *service) ownedActive(ctx context.Context, repo CartRepository, cartID uuid.UUID, owner Owner) (*models.Cart, error) {
	current, err := LoadOwned(ctx, repo, cartID, owner)
	if err != nil {
		return nil, err
	}
	if !current.Status.Shoppable() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Cart is no longer active")
	}
	return current, nil
}

func (s *service) purchasableVariant(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.variants.WithTx(tx).FindVariant(ctx, variantID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product variant not found").WithReason(pkgerrors.ReasonVariantGone)
		}
		return nil, err
	}
	if variant.Product == nil || !variant.Product.Status.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product is not available").WithReason(pkgerrors.ReasonProductUnavailable)
	}
	return variant, nil
}

func (s *service) render(c *models.Cart) *CartDTO {
	dto := ToDTO(c, s.now())
	return &dto
}

func (s *service) wrap(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func insufficientStock(v *models.ProductVariant) error {
	name := v.Name
	if v.Product != nil {
		name = v.Product.Name
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Insufficient stock for %q", name)).
		WithReason(pkgerrors.ReasonInsufficientStock).
		WithDetails(map[string]any{"available": v.Quantity})
}

func itemNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found")
}

func discountMessage(reason string) string {
	switch reason {
	case discounts.ReasonExpired:
		return "Discount code has expired"
	case discounts.ReasonNotStarted:
		return "Discount code is not active yet"
	case discounts.ReasonMinPurchase:
		return "Minimum purchase not met for discount code"
	case discounts.ReasonExhausted:
		return "Discount code usage limit reached"
	default:
		return "Invalid discount code"
	}
}
