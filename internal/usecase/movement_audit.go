package usecase

import (
	"context"
	"encoding/json"
	"time"

	"lensstock/internal/domain/model"
	repo "lensstock/internal/repository"

	"github.com/shopspring/decimal"
)

type lineSnapshot struct {
	SphID    int64 `json:"sph_id"`
	CylID    int64 `json:"cyl_id"`
	Quantity int64 `json:"quantity"`
}

// 監査ログに残す入出庫の状態
type movementSnapshot struct {
	Date       time.Time           `json:"date"`
	ClientID   int64               `json:"client_id"`
	TotalPrice decimal.NullDecimal `json:"total_price"`
	Quantity   int64               `json:"quantity"`
	IsActive   bool                `json:"is_active"`
	LineItems  []lineSnapshot      `json:"line_items"`
}

func snapshotOf(m model.Movement) movementSnapshot {
	s := movementSnapshot{
		Date:       m.Date,
		ClientID:   m.ClientID,
		TotalPrice: m.TotalPrice,
		Quantity:   m.Quantity,
		IsActive:   m.IsActive,
		LineItems:  []lineSnapshot{},
	}
	for _, li := range m.LineItems {
		if li.IsActive {
			s.LineItems = append(s.LineItems, lineSnapshot{SphID: li.SphID, CylID: li.CylID, Quantity: li.Quantity})
		}
	}
	return s
}

// 同じTxで監査ログを書く。失敗したら操作ごとロールバック
func (u *MovementUsecase) audit(ctx context.Context, r repo.TxRepos, actorUserID int64, action model.AuditAction, id string, before, after interface{}) error {
	b, err := json.Marshal(before)
	if err != nil {
		return err
	}
	a, err := json.Marshal(after)
	if err != nil {
		return err
	}
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceMovement,
		ResourceID:   id,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    u.clock.Now(),
	})
}

type ListAuditLogsInput struct {
	MovementID string
	Limit      int
	Offset     int
}

// 入出庫の変更履歴（新しい順）
func (u *MovementUsecase) ListAuditLogs(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	filter := repo.AuditLogFilter{Limit: in.Limit, Offset: in.Offset}
	rt := model.AuditResourceMovement
	filter.ResourceType = &rt
	if in.MovementID != "" {
		filter.ResourceID = &in.MovementID
	}

	var out []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		out, err = r.AuditLogs().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, u.fail("list audit logs", err)
	}
	return out, nil
}
