package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementIncome MovementKind = "income"
	MovementOutput MovementKind = "output"
	MovementSale   MovementKind = "sale"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementIncome, MovementOutput, MovementSale:
		return true
	}
	return false
}

// 在庫を減らす種類か（sale / output）
func (k MovementKind) Consumes() bool {
	return k == MovementOutput || k == MovementSale
}

// 在庫の入出庫1件。
// Quantityは明細合計の非正規化。論理削除のみ（IsActive=false）。
type Movement struct {
	ID         string              `gorm:"type:uuid;primaryKey" json:"id"`
	Date       time.Time           `gorm:"not null;index" json:"date"`
	Kind       MovementKind        `gorm:"type:varchar(10);not null;index" json:"type"`
	CategoryID int64               `gorm:"not null;index" json:"category_id"`
	UserID     int64               `gorm:"not null;index" json:"user_id"`
	ClientID   int64               `gorm:"not null;index" json:"client_id"`
	Quantity   int64               `gorm:"not null" json:"quantity"`
	TotalPrice decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"total_price"`
	IsActive   bool                `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt  time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`

	LineItems []LineItem `gorm:"foreignKey:MovementID" json:"line_items"`
}
