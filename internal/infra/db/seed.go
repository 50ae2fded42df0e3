package db

import (
	"context"
	"errors"

	"lensstock/internal/domain/model"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var DefaultCategories = []string{
	"Hi Blue",
	"Blue Verde",
	"Blue Azul",
	"Fotoblue Verde",
	"Fotogrey",
	"AR",
	"PC Bluecut",
}

const (
	DefaultStoreName     = "Acme Inc"
	DefaultStoreLocation = "Looney Tunes World"
)

// 度数は0.25刻みで±6.00まで
const (
	powerStep  = 25
	powerSteps = 24
)

type SeedOptions struct {
	AdminUsername string
	AdminPassword string
}

// SphValues は -0.25..-6.00, +0.25..+6.00 の48件
func SphValues() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, powerSteps*2)
	for i := 1; i <= powerSteps; i++ {
		out = append(out, decimal.New(int64(-i*powerStep), -2))
	}
	for i := 1; i <= powerSteps; i++ {
		out = append(out, decimal.New(int64(i*powerStep), -2))
	}
	return out
}

// CylValues は +0.25..+6.00 の24件
func CylValues() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, powerSteps)
	for i := 1; i <= powerSteps; i++ {
		out = append(out, decimal.New(int64(i*powerStep), -2))
	}
	return out
}

// Seed は初期データを投入する。何度呼んでも同じ結果になる。
// リクエスト処理中には呼ばない（起動時だけ）。
func Seed(ctx context.Context, db *gorm.DB, opt SeedOptions) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range DefaultCategories {
			c := model.Category{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&c).Error; err != nil {
				return err
			}
		}

		store := model.Store{Name: DefaultStoreName, Location: DefaultStoreLocation}
		if err := tx.Where("name = ?", DefaultStoreName).FirstOrCreate(&store).Error; err != nil {
			return err
		}

		if err := seedPowers(tx, &model.Sph{}, SphValues(), func(v decimal.Decimal) interface{} {
			return &model.Sph{Value: v}
		}); err != nil {
			return err
		}
		if err := seedPowers(tx, &model.Cyl{}, CylValues(), func(v decimal.Decimal) interface{} {
			return &model.Cyl{Value: v}
		}); err != nil {
			return err
		}

		if opt.AdminUsername == "" {
			return nil
		}
		return seedAdmin(tx, store.ID, opt)
	})
}

// 足りない値だけ入れる
func seedPowers(tx *gorm.DB, table interface{}, values []decimal.Decimal, newRow func(decimal.Decimal) interface{}) error {
	var existing []decimal.Decimal
	if err := tx.Model(table).Pluck("value", &existing).Error; err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v.String()] = true
	}

	for _, v := range values {
		if seen[v.String()] {
			continue
		}
		if err := tx.Create(newRow(v)).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(tx *gorm.DB, storeID int64, opt SeedOptions) error {
	var u model.User
	err := tx.Where("username = ?", opt.AdminUsername).First(&u).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opt.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u = model.User{
		Username:     opt.AdminUsername,
		PasswordHash: string(hash),
		Role:         model.RoleSuperAdmin,
		IsActive:     true,
		StoreID:      &storeID,
	}
	return tx.Create(&u).Error
}
