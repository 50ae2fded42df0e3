package model

import "github.com/shopspring/decimal"

// SPH（球面度数）。起動時にシードし、以後は変更しない。
type Sph struct {
	ID    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Value decimal.Decimal `gorm:"type:numeric(4,2);not null;uniqueIndex" json:"value"`
}

func (Sph) TableName() string { return "optic_sph" }

// CYL（円柱度数）
type Cyl struct {
	ID    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Value decimal.Decimal `gorm:"type:numeric(4,2);not null;uniqueIndex" json:"value"`
}

func (Cyl) TableName() string { return "optic_cyl" }
