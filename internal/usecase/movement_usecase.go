package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lensstock/internal/domain/model"
	"lensstock/internal/domain/stock"
	repo "lensstock/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MovementUsecaseは入出庫の登録・更新・取消と在庫照会。
// 書き込みは必ず在庫キーのロックを取ってからTxに入る。
type MovementUsecase struct {
	tx     repo.TransactionManager
	locker Locker
	idGen  IDGenerator
	clock  Clock
	log    *zap.Logger
}

// DI
func NewMovementUsecase(tx repo.TransactionManager, locker Locker, idGen IDGenerator, clock Clock, log *zap.Logger) *MovementUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &MovementUsecase{tx: tx, locker: locker, idGen: idGen, clock: clock, log: log}
}

// 明細1行の入力
type LineItemInput struct {
	SphID     int64            `json:"sph_id"`
	CylID     int64            `json:"cyl_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func (in LineItemInput) key() stock.Key {
	return stock.Key{SphID: in.SphID, CylID: in.CylID}
}

type CreateMovementInput struct {
	Kind       model.MovementKind
	Date       time.Time
	Quantity   int64
	UserID     int64
	ClientID   int64
	CategoryID int64
	TotalPrice *decimal.Decimal
	LineItems  []LineItemInput
}

// 1件あたりの上限。在庫の合計がint64を超えないようにする
const (
	MaxLineItems        = 500
	MaxLineItemQuantity = 1_000_000
)

func (in CreateMovementInput) validate() error {
	var missing []string
	if in.Date.IsZero() {
		missing = append(missing, "date")
	}
	if in.Quantity <= 0 {
		missing = append(missing, "quantity")
	}
	if in.UserID <= 0 {
		missing = append(missing, "user_id")
	}
	if in.ClientID <= 0 {
		missing = append(missing, "client_id")
	}
	if in.CategoryID <= 0 {
		missing = append(missing, "category_id")
	}
	if len(in.LineItems) == 0 {
		missing = append(missing, "line_items")
	}
	missing = append(missing, lineItemsMissing(in.LineItems)...)
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	if err := checkLineItemLimits(in.LineItems); err != nil {
		return err
	}

	// 数量は明細の合計と一致させる
	var sum int64
	for _, li := range in.LineItems {
		sum += li.Quantity
	}
	if sum != in.Quantity {
		return NewHTTPError(http.StatusBadRequest, "quantity must equal sum of line_items")
	}
	return nil
}

func checkLineItemLimits(items []LineItemInput) error {
	if len(items) > MaxLineItems {
		return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("line_items must be at most %d", MaxLineItems))
	}
	for i, li := range items {
		if li.Quantity > MaxLineItemQuantity {
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("line_items[%d].quantity must be <= %d", i, MaxLineItemQuantity))
		}
	}
	return nil
}

func lineItemsMissing(items []LineItemInput) []string {
	var missing []string
	for i, li := range items {
		if li.SphID <= 0 {
			missing = append(missing, fmt.Sprintf("line_items[%d].sph_id", i))
		}
		if li.CylID <= 0 {
			missing = append(missing, fmt.Sprintf("line_items[%d].cyl_id", i))
		}
		if li.Quantity <= 0 {
			missing = append(missing, fmt.Sprintf("line_items[%d].quantity", i))
		}
	}
	return missing
}

// Createは入出庫を1件登録する。
// チェック順: 必須項目 → user/client/category → 在庫（sale/output）→ SPH/CYL。
// 親と明細は同じTxで作るので途中失敗で半端なデータは残らない。
func (u *MovementUsecase) Create(ctx context.Context, in CreateMovementInput) (model.Movement, error) {
	if !in.Kind.Valid() {
		return model.Movement{}, &MissingFieldsError{Fields: []string{"type"}}
	}
	if err := in.validate(); err != nil {
		return model.Movement{}, err
	}

	release, err := u.locker.Acquire(ctx, stockLockKeys(in.CategoryID, in.LineItems)...)
	if err != nil {
		return model.Movement{}, u.fail("lock", err)
	}
	defer release()

	var created model.Movement
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := checkOwners(ctx, r, in.UserID, in.ClientID, in.CategoryID); err != nil {
			return err
		}
		if err := r.Catalog().LockCategory(ctx, in.CategoryID); err != nil {
			return err
		}

		if in.Kind.Consumes() {
			avail, err := aggregate(ctx, r.LineItems(), in.CategoryID)
			if err != nil {
				return err
			}
			reqs := make([]stock.Request, 0, len(in.LineItems))
			for _, li := range in.LineItems {
				reqs = append(reqs, stock.Request{SphID: li.SphID, CylID: li.CylID, Quantity: li.Quantity})
			}
			if err := stock.Validate(avail, reqs); err != nil {
				return err
			}
		}

		if err := resolvePowers(ctx, r.Catalog(), in.LineItems); err != nil {
			return err
		}

		m := model.Movement{
			ID:         u.idGen.NewID(),
			Date:       in.Date.UTC(),
			Kind:       in.Kind,
			CategoryID: in.CategoryID,
			UserID:     in.UserID,
			ClientID:   in.ClientID,
			Quantity:   in.Quantity,
			IsActive:   true,
		}
		if in.Kind == model.MovementSale {
			m.TotalPrice = saleTotal(in.TotalPrice, in.LineItems)
		}
		if err := r.Movements().Create(ctx, &m); err != nil {
			return err
		}

		items := make([]model.LineItem, 0, len(in.LineItems))
		for _, li := range in.LineItems {
			items = append(items, newLineItem(m, li))
		}
		if err := r.LineItems().CreateBulk(ctx, items); err != nil {
			return err
		}

		m.LineItems = items
		created = m
		return nil
	})
	if err != nil {
		return model.Movement{}, u.fail("create movement", err)
	}

	u.log.Info("movement created",
		zap.String("movement_id", created.ID),
		zap.String("kind", string(created.Kind)),
		zap.Int64("category_id", created.CategoryID),
		zap.Int64("quantity", created.Quantity),
	)
	return created, nil
}

func newLineItem(m model.Movement, in LineItemInput) model.LineItem {
	li := model.LineItem{
		MovementID: m.ID,
		CategoryID: m.CategoryID,
		SphID:      in.SphID,
		CylID:      in.CylID,
		Kind:       m.Kind,
		Quantity:   in.Quantity,
		IsActive:   true,
	}
	if m.Kind == model.MovementSale && in.UnitPrice != nil {
		li.UnitPrice = decimal.NewNullDecimal(*in.UnitPrice)
	}
	return li
}

// 合計金額。指定がなければ全明細に単価があるときだけ計算する
func saleTotal(total *decimal.Decimal, items []LineItemInput) decimal.NullDecimal {
	if total != nil {
		return decimal.NewNullDecimal(*total)
	}
	sum := decimal.Zero
	for _, li := range items {
		if li.UnitPrice == nil {
			return decimal.NullDecimal{}
		}
		sum = sum.Add(li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity)))
	}
	return decimal.NewNullDecimal(sum)
}

func checkOwners(ctx context.Context, r repo.TxRepos, userID, clientID, categoryID int64) error {
	if _, err := r.Users().FindByID(ctx, userID); err != nil {
		return mapNotFound(err, "user", userID)
	}
	if _, err := r.Catalog().FindClient(ctx, clientID); err != nil {
		return mapNotFound(err, "client", clientID)
	}
	if _, err := r.Catalog().FindCategory(ctx, categoryID); err != nil {
		return mapNotFound(err, "category", categoryID)
	}
	return nil
}

// 明細のSPH/CYLが存在するか。同じIDは1回だけ引く
func resolvePowers(ctx context.Context, catalog repo.CatalogRepository, items []LineItemInput) error {
	sphOK := make(map[int64]bool)
	cylOK := make(map[int64]bool)
	for _, li := range items {
		if !sphOK[li.SphID] {
			if _, err := catalog.FindSph(ctx, li.SphID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return &InvalidReferenceError{SphID: li.SphID}
				}
				return err
			}
			sphOK[li.SphID] = true
		}
		if !cylOK[li.CylID] {
			if _, err := catalog.FindCyl(ctx, li.CylID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return &InvalidReferenceError{CylID: li.CylID}
				}
				return err
			}
			cylOK[li.CylID] = true
		}
	}
	return nil
}

// カテゴリ全体の在庫表を1回で作る
func aggregate(ctx context.Context, lineItems repo.LineItemRepository, categoryID int64) (*stock.Availability, error) {
	items, err := lineItems.ListActive(ctx, repo.LineItemQuery{CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	return stock.Aggregate(categoryID, items), nil
}

func stockLockKeys(categoryID int64, items []LineItemInput) []string {
	keys := make([]string, 0, len(items))
	for _, li := range items {
		keys = append(keys, li.key().LockKey(categoryID))
	}
	return keys
}

func movementLockKey(id string) string {
	return "movement:" + id
}

func mapNotFound(err error, entity string, id interface{}) error {
	if errors.Is(err, repo.ErrNotFound) {
		return notFound(entity, id)
	}
	return err
}

// 業務エラーはそのまま、それ以外はログを出してStorageErrorに包む
func (u *MovementUsecase) fail(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	u.log.Error("movement storage failure", zap.String("op", op), zap.Error(err))
	return &StorageError{Op: op, Err: err}
}
