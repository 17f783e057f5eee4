package discounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

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

// FindByIDs re-reads discounts, preserving the order of ids.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Discount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Discount
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Discount, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]models.Discount, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

// FindByCode matches codes case-insensitively; codes are stored upper case.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	var row models.Discount
	err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// IncrementUsage bumps used_count once per id, refusing any discount already
// at max_uses. A refusal means a concurrent checkout used the last slot; the
// caller's transaction must roll back.
func (r *Repository) IncrementUsage(ctx context.Context, ids []uuid.UUID) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("id IN ?", ids).
		Where("max_uses IS NULL OR used_count < max_uses").
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return errUsageExhausted()
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func errUsageExhausted() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "A discount on your cart has reached its usage limit").
		WithReason(pkgerrors.ReasonDiscountInvalid)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
