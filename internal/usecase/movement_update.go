package usecase

import (
	"context"
	"time"

	"lensstock/internal/domain/model"
	"lensstock/internal/domain/stock"
	repo "lensstock/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// nilの項目は変更しない。種類とカテゴリは変更できない
type UpdateMovementInput struct {
	Date       *time.Time
	ClientID   *int64
	TotalPrice *decimal.Decimal
	// (sph, cyl) 単位のupsert。ここにない既存明細はそのまま残る
	LineItems []LineItemInput
	// 監査ログ用
	ActorUserID int64
}

func (in UpdateMovementInput) validate() error {
	var missing []string
	if in.Date != nil && in.Date.IsZero() {
		missing = append(missing, "date")
	}
	if in.ClientID != nil && *in.ClientID <= 0 {
		missing = append(missing, "client_id")
	}
	missing = append(missing, lineItemsMissing(in.LineItems)...)
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	if err := checkLineItemLimits(in.LineItems); err != nil {
		return err
	}

	seen := make(map[stock.Key]bool, len(in.LineItems))
	for _, li := range in.LineItems {
		if seen[li.key()] {
			return &DuplicateLineItemError{SphID: li.SphID, CylID: li.CylID}
		}
		seen[li.key()] = true
	}
	return nil
}

// Updateは指定された項目だけ更新する。
// 明細は(sph, cyl)で突き合わせ、既存なら数量を上書き、なければ追加する。
// 在庫が減る方向の差分（sale/outputの増加、incomeの減少）だけ在庫チェックする。
func (u *MovementUsecase) Update(ctx context.Context, id string, in UpdateMovementInput) (model.Movement, error) {
	if err := in.validate(); err != nil {
		return model.Movement{}, err
	}

	releaseMovement, err := u.locker.Acquire(ctx, movementLockKey(id))
	if err != nil {
		return model.Movement{}, u.fail("lock", err)
	}
	defer releaseMovement()

	current, err := u.findActive(ctx, id)
	if err != nil {
		return model.Movement{}, u.fail("update movement", err)
	}

	releaseStock, err := u.locker.Acquire(ctx, stockLockKeys(current.CategoryID, in.LineItems)...)
	if err != nil {
		return model.Movement{}, u.fail("lock", err)
	}
	defer releaseStock()

	var updated model.Movement
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		m, err := r.Movements().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err, "movement", id)
		}
		if !m.IsActive {
			return ErrAlreadyInactive
		}
		before := snapshotOf(m)

		if in.ClientID != nil {
			if _, err := r.Catalog().FindClient(ctx, *in.ClientID); err != nil {
				return mapNotFound(err, "client", *in.ClientID)
			}
			m.ClientID = *in.ClientID
		}
		if in.Date != nil {
			m.Date = in.Date.UTC()
		}
		if in.TotalPrice != nil && m.Kind == model.MovementSale {
			m.TotalPrice = decimal.NewNullDecimal(*in.TotalPrice)
		}

		if len(in.LineItems) > 0 {
			if err := r.Catalog().LockCategory(ctx, m.CategoryID); err != nil {
				return err
			}
			if err := u.upsertLineItems(ctx, r, &m, in.LineItems); err != nil {
				return err
			}
		}

		if err := r.Movements().Update(ctx, m); err != nil {
			return mapNotFound(err, "movement", id)
		}

		updated, err = r.Movements().FindByID(ctx, id)
		if err != nil {
			return err
		}
		return u.audit(ctx, r, in.ActorUserID, model.AuditActionUpdateMovement, id, before, snapshotOf(updated))
	})
	if err != nil {
		return model.Movement{}, u.fail("update movement", err)
	}

	u.log.Info("movement updated",
		zap.String("movement_id", updated.ID),
		zap.String("kind", string(updated.Kind)),
		zap.Int64("category_id", updated.CategoryID),
		zap.Int64("quantity", updated.Quantity),
	)
	return updated, nil
}

func (u *MovementUsecase) upsertLineItems(ctx context.Context, r repo.TxRepos, m *model.Movement, inputs []LineItemInput) error {
	// 登録時に同じキーが複数行あることもある
	rows := make(map[stock.Key][]model.LineItem, len(m.LineItems))
	for _, li := range m.LineItems {
		if li.IsActive {
			k := stock.Key{SphID: li.SphID, CylID: li.CylID}
			rows[k] = append(rows[k], li)
		}
	}

	// 在庫が減る方向の差分
	var reqs []stock.Request
	for _, in := range inputs {
		var old int64
		for _, li := range rows[in.key()] {
			old += li.Quantity
		}
		delta := in.Quantity - old
		if m.Kind == model.MovementIncome {
			delta = -delta
		}
		if delta > 0 {
			reqs = append(reqs, stock.Request{SphID: in.SphID, CylID: in.CylID, Quantity: delta})
		}
	}
	if len(reqs) > 0 {
		avail, err := aggregate(ctx, r.LineItems(), m.CategoryID)
		if err != nil {
			return err
		}
		if err := stock.Validate(avail, reqs); err != nil {
			return err
		}
	}

	var added []LineItemInput
	for _, in := range inputs {
		if _, ok := rows[in.key()]; !ok {
			added = append(added, in)
		}
	}
	if err := resolvePowers(ctx, r.Catalog(), added); err != nil {
		return err
	}

	newItems := make([]model.LineItem, 0, len(added))
	var merged []int64
	for _, in := range inputs {
		rs, ok := rows[in.key()]
		if !ok {
			newItems = append(newItems, newLineItem(*m, in))
			continue
		}
		// 先頭行に寄せて、残りは無効化
		head := rs[0]
		price := head.UnitPrice
		if m.Kind == model.MovementSale && in.UnitPrice != nil {
			price = decimal.NewNullDecimal(*in.UnitPrice)
		}
		if err := r.LineItems().UpdateQuantity(ctx, head.ID, in.Quantity, price); err != nil {
			return err
		}
		for _, li := range rs[1:] {
			merged = append(merged, li.ID)
		}
		head.Quantity = in.Quantity
		rows[in.key()] = []model.LineItem{head}
	}
	if err := r.LineItems().DeactivateByIDs(ctx, merged); err != nil {
		return err
	}
	if err := r.LineItems().CreateBulk(ctx, newItems); err != nil {
		return err
	}

	// 数量は有効な明細の合計に合わせ直す
	var total int64
	for _, rs := range rows {
		for _, li := range rs {
			total += li.Quantity
		}
	}
	for _, li := range newItems {
		total += li.Quantity
	}
	m.Quantity = total
	return nil
}

// ロック前の下見。Tx内でもう一度確認する
func (u *MovementUsecase) findActive(ctx context.Context, id string) (model.Movement, error) {
	var m model.Movement
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		m, err = r.Movements().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err, "movement", id)
		}
		if !m.IsActive {
			return ErrAlreadyInactive
		}
		return nil
	})
	return m, err
}
