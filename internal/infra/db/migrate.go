package db

import (
	"lensstock/internal/domain/model"

	"gorm.io/gorm"
)

// Migrate はテーブルと索引を作る
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Store{},
		&model.User{},
		&model.Category{},
		&model.Client{},
		&model.Sph{},
		&model.Cyl{},
		&model.Movement{},
		&model.LineItem{},
		&model.AuditLog{},
	)
}
