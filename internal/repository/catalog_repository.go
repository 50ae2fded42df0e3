package repository

import (
	"context"

	"lensstock/internal/domain/model"
)

type PageQuery struct {
	Page  int
	Limit int
	Q     string
}

// SPHの符号での絞り込み
type SphSign string

const (
	SphAll      SphSign = "all"
	SphPositive SphSign = "positive"
	SphNegative SphSign = "negative"
)

// カテゴリ・顧客・度数の参照。どれも入出庫から参照されるだけ。
type CatalogRepository interface {
	FindCategory(ctx context.Context, id int64) (model.Category, error)
	// カテゴリ行を行ロックする（SELECT ... FOR UPDATE）
	LockCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context, q PageQuery) ([]model.Category, int64, error)

	FindClient(ctx context.Context, id int64) (model.Client, error)
	CreateClient(ctx context.Context, c *model.Client) error
	ListClients(ctx context.Context, q PageQuery) ([]model.Client, int64, error)

	FindSph(ctx context.Context, id int64) (model.Sph, error)
	FindCyl(ctx context.Context, id int64) (model.Cyl, error)
	ListSph(ctx context.Context, sign SphSign) ([]model.Sph, error)
	ListCyl(ctx context.Context) ([]model.Cyl, error)
}
