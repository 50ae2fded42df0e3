package repository

import (
	"context"
	"errors"
	"time"

	"lensstock/internal/domain/model"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// 一意制約違反
var ErrDuplicate = errors.New("duplicate")

// 入出庫の一覧検索
type MovementListQuery struct {
	Kind  model.MovementKind
	Page  int
	Limit int
	// 指定日（UTCの0時）。nilなら全期間
	Day *time.Time
}

// 入出庫（Movement）の保存・取得の約束。
// 明細はLineItemRepositoryで別に保存する。
type MovementRepository interface {
	// 親行だけ作成（明細は作らない）
	Create(ctx context.Context, m *model.Movement) error

	// 明細込みで1件取得。無効な明細も含む
	FindByID(ctx context.Context, id string) (model.Movement, error)

	List(ctx context.Context, q MovementListQuery) ([]model.Movement, int64, error)

	// 日付・顧客・合計金額・数量を更新
	Update(ctx context.Context, m model.Movement) error

	// 有効なときだけ無効化する。無効化できたらtrue
	Deactivate(ctx context.Context, id string) (bool, error)
}

// 有効明細の検索条件
type LineItemQuery struct {
	CategoryID int64
	Kinds      []model.MovementKind
	SphID      *int64
	CylID      *int64
}

type LineItemRepository interface {
	CreateBulk(ctx context.Context, items []model.LineItem) error
	UpdateQuantity(ctx context.Context, id int64, qty int64, unitPrice decimal.NullDecimal) error

	// 有効な入出庫に属する有効な明細だけ返す
	ListActive(ctx context.Context, q LineItemQuery) ([]model.LineItem, error)

	DeactivateByMovement(ctx context.Context, movementID string) error
	DeactivateByIDs(ctx context.Context, ids []int64) error
}
