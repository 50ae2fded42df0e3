package model

import "time"

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleSeller     Role = "seller"
)

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'seller'" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	FullName     string    `gorm:"type:varchar(255)" json:"full_name"`
	DNI          string    `gorm:"type:varchar(30)" json:"dni"`
	Phone        string    `gorm:"type:varchar(30)" json:"phone"`
	Address      string    `gorm:"type:varchar(255)" json:"address"`
	Email        string    `gorm:"type:varchar(255)" json:"email"`
	StoreID      *int64    `gorm:"index" json:"store_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
