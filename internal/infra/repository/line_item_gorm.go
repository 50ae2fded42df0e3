package repository

import (
	"context"

	"lensstock/internal/domain/model"
	repo "lensstock/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LineItemGormRepository struct {
	db *gorm.DB
}

func NewLineItemGormRepository(db *gorm.DB) *LineItemGormRepository {
	return &LineItemGormRepository{db: db}
}

// まとめて作成。IDはitemsに書き戻される
func (r *LineItemGormRepository) CreateBulk(ctx context.Context, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *LineItemGormRepository) UpdateQuantity(ctx context.Context, id int64, qty int64, unitPrice decimal.NullDecimal) error {
	res := r.db.WithContext(ctx).Model(&model.LineItem{}).Where("id = ?", id).Updates(map[string]interface{}{
		"quantity":   qty,
		"unit_price": unitPrice,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// (category_id, sph_id, cyl_id) の索引で引く。
// 明細と親の両方が有効なものだけ
func (r *LineItemGormRepository) ListActive(ctx context.Context, q repo.LineItemQuery) ([]model.LineItem, error) {
	var items []model.LineItem

	tx := r.db.WithContext(ctx).
		Model(&model.LineItem{}).
		Select("line_items.*").
		Joins("JOIN movements ON movements.id = line_items.movement_id").
		Where("line_items.category_id = ?", q.CategoryID).
		Where("line_items.is_active = ? AND movements.is_active = ?", true, true)

	if len(q.Kinds) > 0 {
		tx = tx.Where("line_items.kind IN ?", q.Kinds)
	}
	if q.SphID != nil {
		tx = tx.Where("line_items.sph_id = ?", *q.SphID)
	}
	if q.CylID != nil {
		tx = tx.Where("line_items.cyl_id = ?", *q.CylID)
	}

	if err := tx.Order("line_items.id asc").Find(&items).Error; err != nil {
		return []model.LineItem{}, err
	}
	return items, nil
}

func (r *LineItemGormRepository) DeactivateByMovement(ctx context.Context, movementID string) error {
	return r.db.WithContext(ctx).
		Model(&model.LineItem{}).
		Where("movement_id = ?", movementID).
		Update("is_active", false).Error
}

func (r *LineItemGormRepository) DeactivateByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.LineItem{}).
		Where("id IN ?", ids).
		Update("is_active", false).Error
}
