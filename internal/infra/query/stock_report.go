// Package query は画面向けの読み取り専用SQL（sqlx）。
package query

import (
	"context"

	"lensstock/internal/domain/model"
	repo "lensstock/internal/repository"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// gormと同じコネクションプールをsqlxで使う
func NewDB(gdb *gorm.DB, driver string) (*sqlx.DB, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	name := "pgx"
	if driver == "sqlite" {
		name = "sqlite3"
	}
	return sqlx.NewDb(sqlDB, name), nil
}

const stockByCategorySQL = `
SELECT
	li.sph_id,
	s.value AS sph_value,
	li.cyl_id,
	c.value AS cyl_value,
	CAST(COALESCE(SUM(CASE WHEN li.kind = ? THEN li.quantity ELSE 0 END), 0) AS BIGINT) AS income,
	CAST(COALESCE(SUM(CASE WHEN li.kind IN (?, ?) THEN li.quantity ELSE 0 END), 0) AS BIGINT) AS consumed
FROM line_items li
JOIN movements m ON m.id = li.movement_id
JOIN optic_sph s ON s.id = li.sph_id
JOIN optic_cyl c ON c.id = li.cyl_id
WHERE li.category_id = ? AND li.is_active = ? AND m.is_active = ?
GROUP BY li.sph_id, s.value, li.cyl_id, c.value
ORDER BY s.value ASC, c.value ASC`

type StockReportSQLX struct {
	db *sqlx.DB
}

func NewStockReportSQLX(db *sqlx.DB) *StockReportSQLX {
	return &StockReportSQLX{db: db}
}

// カテゴリ内で動きのあった(sph, cyl)ごとの入庫・消費・在庫
func (q *StockReportSQLX) StockByCategory(ctx context.Context, categoryID int64) ([]repo.StockRow, error) {
	rows := []repo.StockRow{}
	err := q.db.SelectContext(ctx, &rows, q.db.Rebind(stockByCategorySQL),
		model.MovementIncome, model.MovementSale, model.MovementOutput,
		categoryID, true, true,
	)
	if err != nil {
		return []repo.StockRow{}, err
	}
	for i := range rows {
		rows[i].Available = rows[i].Income - rows[i].Consumed
	}
	return rows, nil
}
