package model

import "time"

// 入出庫の変更操作
type AuditAction string

const (
	//明細・日付・顧客などを更新した操作。
	AuditActionUpdateMovement AuditAction = "UPDATE_MOVEMENT"
	//取消（論理削除）した操作。
	AuditActionReverseMovement AuditAction = "REVERSE_MOVEMENT"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceMovement AuditResourceType = "movement"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。登録は入出庫自体が履歴なので残さない。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//対象のID（movementはUUID）。
	ResourceID string `gorm:"type:varchar(64);not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
