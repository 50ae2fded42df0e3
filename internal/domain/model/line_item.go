package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 入出庫の明細（SPH×CYL×数量）
// CategoryIDとKindは親Movementのコピー。在庫集計を(category_id, sph_id, cyl_id)の索引で引くため。
type LineItem struct {
	ID         int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	MovementID string              `gorm:"type:uuid;not null;index" json:"movement_id"`
	CategoryID int64               `gorm:"not null;index:idx_line_items_stock,priority:1" json:"category_id"`
	SphID      int64               `gorm:"not null;index:idx_line_items_stock,priority:2" json:"sph_id"`
	CylID      int64               `gorm:"not null;index:idx_line_items_stock,priority:3" json:"cyl_id"`
	Kind       MovementKind        `gorm:"type:varchar(10);not null" json:"kind"`
	Quantity   int64               `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	IsActive   bool                `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Sph *Sph `gorm:"foreignKey:SphID" json:"sph,omitempty"`
	Cyl *Cyl `gorm:"foreignKey:CylID" json:"cyl,omitempty"`
}
