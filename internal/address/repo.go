package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
)

// Repository persists saved addresses.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByUser returns the default entries first, then newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error) {
	var rows []models.SavedAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// FindOwned loads an address only if it belongs to userID.
func (r *Repository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*models.SavedAddress, error) {
	var row models.SavedAddress
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.SavedAddress) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.SavedAddress) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.SavedAddress{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClearDefault unsets the default flag on every (user, type) entry except
// keep, which may be uuid.Nil.
func (r *Repository) ClearDefault(ctx context.Context, userID uuid.UUID, addrType enums.AddressType, keep uuid.UUID) error {
	query := r.db.WithContext(ctx).
		Model(&models.SavedAddress{}).
		Where("user_id = ? AND type = ? AND is_default = ?", userID, addrType, true)
	if keep != uuid.Nil {
		query = query.Where("id <> ?", keep)
	}
	return query.Update("is_default", false).Error
}
