package repository

import (
	"context"
	"errors"
	"strings"

	"lensstock/internal/domain/model"
	repo "lensstock/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogGormRepository struct {
	db *gorm.DB
}

func NewCatalogGormRepository(db *gorm.DB) *CatalogGormRepository {
	return &CatalogGormRepository{db: db}
}

// IDで1件取得。gormのNotFoundはrepo.ErrNotFoundへ
func first[T any](ctx context.Context, db *gorm.DB, id int64) (T, error) {
	var v T
	err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var zero T
		return zero, repo.ErrNotFound
	}
	return v, err
}

func (r *CatalogGormRepository) FindCategory(ctx context.Context, id int64) (model.Category, error) {
	return first[model.Category](ctx, r.db, id)
}

// postgresでは SELECT ... FOR UPDATE。sqliteはロック句を出さない
func (r *CatalogGormRepository) LockCategory(ctx context.Context, id int64) error {
	var c model.Category
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	return err
}

func (r *CatalogGormRepository) ListCategories(ctx context.Context, q repo.PageQuery) ([]model.Category, int64, error) {
	var categories []model.Category
	total, err := r.page(ctx, &model.Category{}, "name", q, &categories)
	if err != nil {
		return []model.Category{}, 0, err
	}
	return categories, total, nil
}

func (r *CatalogGormRepository) FindClient(ctx context.Context, id int64) (model.Client, error) {
	return first[model.Client](ctx, r.db, id)
}

func (r *CatalogGormRepository) CreateClient(ctx context.Context, c *model.Client) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CatalogGormRepository) ListClients(ctx context.Context, q repo.PageQuery) ([]model.Client, int64, error) {
	var clients []model.Client
	total, err := r.page(ctx, &model.Client{}, "full_name", q, &clients)
	if err != nil {
		return []model.Client{}, 0, err
	}
	return clients, total, nil
}

// 名前の部分一致（大文字小文字は無視）＋ページング
func (r *CatalogGormRepository) page(ctx context.Context, table interface{}, column string, q repo.PageQuery, dest interface{}) (int64, error) {
	var total int64
	tx := r.db.WithContext(ctx).Model(table)

	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}

	offset := (q.Page - 1) * q.Limit
	if err := tx.Order(column + " asc").Order("id asc").Offset(offset).Limit(q.Limit).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *CatalogGormRepository) FindSph(ctx context.Context, id int64) (model.Sph, error) {
	return first[model.Sph](ctx, r.db, id)
}

func (r *CatalogGormRepository) FindCyl(ctx context.Context, id int64) (model.Cyl, error) {
	return first[model.Cyl](ctx, r.db, id)
}

// 0に近い順
func (r *CatalogGormRepository) ListSph(ctx context.Context, sign repo.SphSign) ([]model.Sph, error) {
	var out []model.Sph
	tx := r.db.WithContext(ctx).Model(&model.Sph{})
	switch sign {
	case repo.SphPositive:
		tx = tx.Where("value > 0").Order("value asc")
	case repo.SphNegative:
		tx = tx.Where("value < 0").Order("value desc")
	default:
		tx = tx.Order("value asc")
	}
	if err := tx.Find(&out).Error; err != nil {
		return []model.Sph{}, err
	}
	return out, nil
}

func (r *CatalogGormRepository) ListCyl(ctx context.Context) ([]model.Cyl, error) {
	var out []model.Cyl
	if err := r.db.WithContext(ctx).Order("value asc").Find(&out).Error; err != nil {
		return []model.Cyl{}, err
	}
	return out, nil
}
