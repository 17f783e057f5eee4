package address

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a signed-in user's address book.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*models.SavedAddress, error)
	Update(ctx context.Context, userID, id uuid.UUID, input Input) (*models.SavedAddress, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Input is the writable part of a saved address. An empty Type means
// shipping on create and "unchanged" on update.
type Input struct {
	Address   types.Address
	Type      enums.AddressType
	IsDefault bool
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Address not found")
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to fetch addresses")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*models.SavedAddress, error) {
	addrType, err := resolveType(input.Type, enums.AddressTypeShipping)
	if err != nil {
		return nil, err
	}
	if !input.Address.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete")
	}

	row := &models.SavedAddress{
		UserID:    userID,
		Type:      addrType,
		IsDefault: input.IsDefault,
		Address:   input.Address.Normalized(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if row.IsDefault {
			if err := repo.ClearDefault(ctx, userID, addrType, uuid.Nil); err != nil {
				return err
			}
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to create address")
	}
	return row, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input Input) (*models.SavedAddress, error) {
	if !input.Address.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete")
	}

	var updated *models.SavedAddress
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindOwned(ctx, id, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return notFound()
			}
			return err
		}
		addrType, err := resolveType(input.Type, existing.Type)
		if err != nil {
			return err
		}
		if input.IsDefault {
			if err := repo.ClearDefault(ctx, userID, addrType, existing.ID); err != nil {
				return err
			}
		}
		existing.Type = addrType
		existing.IsDefault = input.IsDefault
		existing.Address = input.Address.Normalized()
		if err := repo.Save(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to update address")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to delete address")
	}
	if !deleted {
		return notFound()
	}
	return nil
}

func resolveType(value, fallback enums.AddressType) (enums.AddressType, error) {
	if value == "" {
		return fallback, nil
	}
	parsed, err := enums.ParseAddressType(string(value))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address type")
	}
	return parsed, nil
}
