package usecase

import (
	"context"

	"lensstock/internal/domain/model"
	"lensstock/internal/domain/stock"
	repo "lensstock/internal/repository"

	"go.uber.org/zap"
)

// 取消でキーごとに動いた在庫
type Compensation struct {
	SphID          int64 `json:"sph_id"`
	CylID          int64 `json:"cyl_id"`
	Delta          int64 `json:"delta"`
	AvailableAfter int64 `json:"available_after"`
}

type ReverseOutput struct {
	MovementID    string             `json:"movement_id"`
	Kind          model.MovementKind `json:"type"`
	Compensations []Compensation     `json:"compensations"`
}

// Reverseは入出庫を論理削除する。
// sale/outputは消費分が在庫に戻る。incomeは取り消すとマイナスになるキーがあれば拒否する。
// 2回目はErrAlreadyInactive。actorUserIDは監査ログ用。
func (u *MovementUsecase) Reverse(ctx context.Context, id string, actorUserID int64) (ReverseOutput, error) {
	releaseMovement, err := u.locker.Acquire(ctx, movementLockKey(id))
	if err != nil {
		return ReverseOutput{}, u.fail("lock", err)
	}
	defer releaseMovement()

	current, err := u.findActive(ctx, id)
	if err != nil {
		return ReverseOutput{}, u.fail("reverse movement", err)
	}

	keys := make([]string, 0, len(current.LineItems))
	for _, li := range current.LineItems {
		keys = append(keys, stock.Key{SphID: li.SphID, CylID: li.CylID}.LockKey(current.CategoryID))
	}
	releaseStock, err := u.locker.Acquire(ctx, keys...)
	if err != nil {
		return ReverseOutput{}, u.fail("lock", err)
	}
	defer releaseStock()

	var out ReverseOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		m, err := r.Movements().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err, "movement", id)
		}
		if !m.IsActive {
			return ErrAlreadyInactive
		}
		if err := r.Catalog().LockCategory(ctx, m.CategoryID); err != nil {
			return err
		}

		avail, err := aggregate(ctx, r.LineItems(), m.CategoryID)
		if err != nil {
			return err
		}

		// キーごとにまとめる（明細の登場順）
		var order []stock.Key
		qty := make(map[stock.Key]int64)
		for _, li := range m.LineItems {
			if !li.IsActive {
				continue
			}
			k := stock.Key{SphID: li.SphID, CylID: li.CylID}
			if _, ok := qty[k]; !ok {
				order = append(order, k)
			}
			qty[k] += li.Quantity
		}

		comps := make([]Compensation, 0, len(order))
		if m.Kind == model.MovementIncome {
			reqs := make([]stock.Request, 0, len(order))
			for _, k := range order {
				reqs = append(reqs, stock.Request{SphID: k.SphID, CylID: k.CylID, Quantity: qty[k]})
			}
			if err := stock.Validate(avail, reqs); err != nil {
				return err
			}
			for _, k := range order {
				comps = append(comps, Compensation{SphID: k.SphID, CylID: k.CylID, Delta: -qty[k], AvailableAfter: avail.Available(k)})
			}
		} else {
			for _, k := range order {
				avail.Release(k, qty[k])
				comps = append(comps, Compensation{SphID: k.SphID, CylID: k.CylID, Delta: qty[k], AvailableAfter: avail.Available(k)})
			}
		}

		ok, err := r.Movements().Deactivate(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyInactive
		}
		if err := r.LineItems().DeactivateByMovement(ctx, id); err != nil {
			return err
		}

		out = ReverseOutput{MovementID: m.ID, Kind: m.Kind, Compensations: comps}
		return u.audit(ctx, r, actorUserID, model.AuditActionReverseMovement, id, snapshotOf(m), out)
	})
	if err != nil {
		return ReverseOutput{}, u.fail("reverse movement", err)
	}

	u.log.Info("movement reversed",
		zap.String("movement_id", out.MovementID),
		zap.String("kind", string(out.Kind)),
		zap.Int("keys", len(out.Compensations)),
	)
	return out, nil
}
