package repository

import (
	"context"

	"github.com/shopspring/decimal"
)

// 在庫一覧の1行（カテゴリ内のSPH×CYL）
type StockRow struct {
	SphID     int64           `db:"sph_id" json:"sph_id"`
	SphValue  decimal.Decimal `db:"sph_value" json:"sph"`
	CylID     int64           `db:"cyl_id" json:"cyl_id"`
	CylValue  decimal.Decimal `db:"cyl_value" json:"cyl"`
	Income    int64           `db:"income" json:"income"`
	Consumed  int64           `db:"consumed" json:"consumed"`
	Available int64           `db:"-" json:"available"`
}

// 読み取り専用の集計。書き込み側の在庫チェックには使わない
type StockReportReader interface {
	StockByCategory(ctx context.Context, categoryID int64) ([]StockRow, error)
}
