package repository

import (
	"context"
	"errors"

	"lensstock/internal/domain/model"
	repo "lensstock/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovementGormRepository struct {
	db *gorm.DB
}

// DI
func NewMovementGormRepository(db *gorm.DB) *MovementGormRepository {
	return &MovementGormRepository{db: db}
}

// 親行だけ作る。明細はLineItemGormRepositoryで作る
func (r *MovementGormRepository) Create(ctx context.Context, m *model.Movement) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

// IDで1件取得（明細と度数つき）
func (r *MovementGormRepository) FindByID(ctx context.Context, id string) (model.Movement, error) {
	var m model.Movement
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("LineItems.Sph").
		Preload("LineItems.Cyl").
		Where("id = ?", id).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Movement{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Movement{}, err
	}
	return m, nil
}

// 種類ごとの一覧。新しい順
func (r *MovementGormRepository) List(ctx context.Context, q repo.MovementListQuery) ([]model.Movement, int64, error) {
	var movements []model.Movement
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Movement{}).Where("kind = ?", q.Kind)

	//日付（その日の0時から翌0時まで）
	if q.Day != nil {
		from := *q.Day
		tx = tx.Where("date >= ? AND date < ?", from, from.AddDate(0, 0, 1))
	}

	if err := tx.Count(&total).Error; err != nil {
		return []model.Movement{}, 0, err
	}

	offset := (q.Page - 1) * q.Limit
	err := tx.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Order("date desc").Order("created_at desc").
		Offset(offset).Limit(q.Limit).
		Find(&movements).Error
	if err != nil {
		return []model.Movement{}, 0, err
	}
	return movements, total, nil
}

// 可変項目だけ更新（種類・カテゴリは変えない）
func (r *MovementGormRepository) Update(ctx context.Context, m model.Movement) error {
	res := r.db.WithContext(ctx).Model(&model.Movement{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"date":        m.Date,
		"client_id":   m.ClientID,
		"total_price": m.TotalPrice,
		"quantity":    m.Quantity,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 有効なときだけ無効化（条件付きUPDATE）
func (r *MovementGormRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Movement{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
