package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"lensstock/internal/domain/model"
	"lensstock/internal/domain/stock"
	repo "lensstock/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newMovementUC(r *TxReposMock) (*MovementUsecase, *TxManagerMock, *fakeLocker) {
	tx := &TxManagerMock{Repos: r}
	tx.On("WithinTx", mock.Anything).Return()
	locker := &fakeLocker{}
	return NewMovementUsecase(tx, locker, fixedID("mv-1"), fixedClock(testNow), nil), tx, locker
}

func saleInput(items ...LineItemInput) CreateMovementInput {
	var qty int64
	for _, li := range items {
		qty += li.Quantity
	}
	return CreateMovementInput{
		Kind:       model.MovementSale,
		Date:       testNow,
		Quantity:   qty,
		UserID:     1,
		ClientID:   2,
		CategoryID: 3,
		LineItems:  items,
	}
}

// user / client / category が全部ある
func ownersExist(r *TxReposMock) {
	r.users.On("FindByID", mock.Anything, int64(1)).Return(model.User{ID: 1}, nil)
	r.catalog.On("FindClient", mock.Anything, int64(2)).Return(model.Client{ID: 2}, nil)
	r.catalog.On("FindCategory", mock.Anything, int64(3)).Return(model.Category{ID: 3}, nil)
	r.catalog.On("LockCategory", mock.Anything, int64(3)).Return(nil)
}

func incomeItem(sph, cyl, qty int64) model.LineItem {
	return model.LineItem{CategoryID: 3, SphID: sph, CylID: cyl, Kind: model.MovementIncome, Quantity: qty, IsActive: true}
}

func TestCreate_MissingFields(t *testing.T) {
	r := newTxReposMock()
	uc, tx, _ := newMovementUC(r)

	_, err := uc.Create(context.Background(), CreateMovementInput{
		Kind:      model.MovementSale,
		LineItems: []LineItemInput{{SphID: 1}},
	})

	var mf *MissingFieldsError
	require.ErrorAs(t, err, &mf)
	assert.Contains(t, mf.Fields, "date")
	assert.Contains(t, mf.Fields, "client_id")
	assert.Contains(t, mf.Fields, "line_items[0].cyl_id")
	assert.Contains(t, mf.Fields, "line_items[0].quantity")
	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestCreate_QuantityMustMatchLineItems(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	in := saleInput(LineItemInput{SphID: 1, CylID: 1, Quantity: 4})
	in.Quantity = 5

	_, err := uc.Create(context.Background(), in)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "quantity must equal sum of line_items", he.Message)
}

func TestCreate_LineItemLimits(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItemInput
		msg   string
	}{
		{
			name:  "quantity over max",
			items: []LineItemInput{{SphID: 1, CylID: 1, Quantity: MaxLineItemQuantity + 1}},
			msg:   "line_items[0].quantity must be <= 1000000",
		},
		{
			// 合計がラップして quantity と一致してしまう入力
			name: "wrapping sum",
			items: []LineItemInput{
				{SphID: 1, CylID: 1, Quantity: math.MaxInt64},
				{SphID: 2, CylID: 1, Quantity: math.MaxInt64},
				{SphID: 3, CylID: 1, Quantity: 3},
			},
			msg: "line_items[0].quantity must be <= 1000000",
		},
		{
			name:  "too many lines",
			items: make([]LineItemInput, MaxLineItems+1),
			msg:   "line_items must be at most 500",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTxReposMock()
			uc, tx, _ := newMovementUC(r)

			items := tt.items
			for i := range items {
				if items[i].SphID == 0 {
					items[i] = LineItemInput{SphID: int64(i + 1), CylID: 1, Quantity: 1}
				}
			}
			in := saleInput(items...)
			in.Quantity = 1

			_, err := uc.Create(context.Background(), in)

			he, ok := AsHTTPError(err)
			require.True(t, ok, "err=%v", err)
			assert.Equal(t, 400, he.Status)
			assert.Equal(t, tt.msg, he.Message)
			tx.AssertNotCalled(t, "WithinTx", mock.Anything)
		})
	}
}

func TestCreate_ClientNotFound(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	r.users.On("FindByID", mock.Anything, int64(1)).Return(model.User{ID: 1}, nil)
	r.catalog.On("FindClient", mock.Anything, int64(2)).Return(model.Client{}, repo.ErrNotFound)

	_, err := uc.Create(context.Background(), saleInput(LineItemInput{SphID: 1, CylID: 1, Quantity: 1}))

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "client", nf.Entity)
	assert.Equal(t, "2", nf.ID)
}

func TestCreate_Sale_InsufficientStock_NothingPersisted(t *testing.T) {
	r := newTxReposMock()
	uc, _, locker := newMovementUC(r)
	ownersExist(r)

	r.lineItems.On("ListActive", mock.Anything, repo.LineItemQuery{CategoryID: 3}).
		Return([]model.LineItem{incomeItem(10, 20, 6)}, nil)

	_, err := uc.Create(context.Background(), saleInput(
		LineItemInput{SphID: 10, CylID: 20, Quantity: 4},
		LineItemInput{SphID: 10, CylID: 20, Quantity: 3},
	))

	var ise *stock.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(3), ise.Requested)
	assert.Equal(t, int64(2), ise.Available)

	r.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	r.lineItems.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything)

	// 重複の除去はLocker側でやる
	require.Len(t, locker.acquired, 1)
	assert.Equal(t, []string{"stock:3:10:20", "stock:3:10:20"}, locker.acquired[0])
	assert.Equal(t, 1, locker.released)
}

func TestCreate_InvalidSphReference(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)
	ownersExist(r)

	in := saleInput(LineItemInput{SphID: 99, CylID: 20, Quantity: 1})
	in.Kind = model.MovementIncome

	r.catalog.On("FindSph", mock.Anything, int64(99)).Return(model.Sph{}, repo.ErrNotFound)

	_, err := uc.Create(context.Background(), in)

	var ir *InvalidReferenceError
	require.ErrorAs(t, err, &ir)
	assert.Equal(t, int64(99), ir.SphID)
	r.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	// incomeは在庫を見ない
	r.lineItems.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything)
}

func TestCreate_Sale_OK(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)
	ownersExist(r)

	r.lineItems.On("ListActive", mock.Anything, repo.LineItemQuery{CategoryID: 3}).
		Return([]model.LineItem{incomeItem(10, 20, 10)}, nil)
	r.catalog.On("FindSph", mock.Anything, int64(10)).Return(model.Sph{ID: 10}, nil)
	r.catalog.On("FindCyl", mock.Anything, int64(20)).Return(model.Cyl{ID: 20}, nil)
	r.movements.On("Create", mock.Anything, mock.MatchedBy(func(m *model.Movement) bool {
		return m.ID == "mv-1" && m.Kind == model.MovementSale && m.Quantity == 4 && m.IsActive
	})).Return(nil)
	r.lineItems.On("CreateBulk", mock.Anything, mock.MatchedBy(func(items []model.LineItem) bool {
		return len(items) == 1 && items[0].MovementID == "mv-1" && items[0].CategoryID == 3 && items[0].Kind == model.MovementSale
	})).Return(nil)

	price := decimal.RequireFromString("12.50")
	m, err := uc.Create(context.Background(), saleInput(LineItemInput{SphID: 10, CylID: 20, Quantity: 4, UnitPrice: &price}))
	require.NoError(t, err)

	assert.Equal(t, "mv-1", m.ID)
	require.Len(t, m.LineItems, 1)
	require.True(t, m.TotalPrice.Valid)
	assert.Equal(t, "50.00", m.TotalPrice.Decimal.StringFixed(2))
	assert.True(t, m.LineItems[0].UnitPrice.Valid)
	r.movements.AssertExpectations(t)
	r.lineItems.AssertExpectations(t)
}

func TestCreate_Income_DropsPrices(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)
	ownersExist(r)

	r.catalog.On("FindSph", mock.Anything, int64(10)).Return(model.Sph{ID: 10}, nil)
	r.catalog.On("FindCyl", mock.Anything, int64(20)).Return(model.Cyl{ID: 20}, nil)
	r.movements.On("Create", mock.Anything, mock.Anything).Return(nil)
	r.lineItems.On("CreateBulk", mock.Anything, mock.Anything).Return(nil)

	price := decimal.RequireFromString("3")
	in := saleInput(LineItemInput{SphID: 10, CylID: 20, Quantity: 10, UnitPrice: &price})
	in.Kind = model.MovementIncome
	in.TotalPrice = &price

	m, err := uc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, m.TotalPrice.Valid)
	assert.False(t, m.LineItems[0].UnitPrice.Valid)
}

func TestCreate_StorageFailure(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)
	ownersExist(r)

	boom := errors.New("connection reset")
	r.lineItems.On("ListActive", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := uc.Create(context.Background(), saleInput(LineItemInput{SphID: 10, CylID: 20, Quantity: 1}))

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "create movement", se.Op)
}

func TestCreate_LockFailure(t *testing.T) {
	r := newTxReposMock()
	uc, tx, locker := newMovementUC(r)
	locker.err = context.DeadlineExceeded

	_, err := uc.Create(context.Background(), saleInput(LineItemInput{SphID: 10, CylID: 20, Quantity: 1}))

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "lock", se.Op)
	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestUpdate_DuplicateLineItems(t *testing.T) {
	r := newTxReposMock()
	uc, tx, _ := newMovementUC(r)

	_, err := uc.Update(context.Background(), "mv-1", UpdateMovementInput{
		LineItems: []LineItemInput{
			{SphID: 1, CylID: 1, Quantity: 1},
			{SphID: 1, CylID: 1, Quantity: 2},
		},
	})

	var dup *DuplicateLineItemError
	require.ErrorAs(t, err, &dup)
	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestUpdate_NotFound(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	r.movements.On("FindByID", mock.Anything, "nope").Return(model.Movement{}, repo.ErrNotFound)

	_, err := uc.Update(context.Background(), "nope", UpdateMovementInput{})

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "movement", nf.Entity)
}

func TestUpdate_Sale_IncreaseChecksOnlyDelta(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	current := model.Movement{
		ID: "mv-1", Kind: model.MovementSale, CategoryID: 3, Quantity: 4, IsActive: true,
		LineItems: []model.LineItem{{ID: 7, CategoryID: 3, SphID: 10, CylID: 20, Kind: model.MovementSale, Quantity: 4, IsActive: true}},
	}
	r.movements.On("FindByID", mock.Anything, "mv-1").Return(current, nil)
	r.catalog.On("LockCategory", mock.Anything, int64(3)).Return(nil)
	// 入庫10、自分の売上4 → 残り6。4→9 は差分5なので通る
	r.lineItems.On("ListActive", mock.Anything, repo.LineItemQuery{CategoryID: 3}).
		Return([]model.LineItem{incomeItem(10, 20, 10), current.LineItems[0]}, nil)
	r.lineItems.On("UpdateQuantity", mock.Anything, int64(7), int64(9), decimal.NullDecimal{}).Return(nil)
	r.lineItems.On("DeactivateByIDs", mock.Anything, []int64(nil)).Return(nil)
	r.lineItems.On("CreateBulk", mock.Anything, []model.LineItem{}).Return(nil)
	r.movements.On("Update", mock.Anything, mock.MatchedBy(func(m model.Movement) bool {
		return m.Quantity == 9
	})).Return(nil)
	r.audits.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateMovement && l.ActorUserID == 5 && l.ResourceID == "mv-1" &&
			l.CreatedAt.Equal(testNow)
	})).Return(nil)

	_, err := uc.Update(context.Background(), "mv-1", UpdateMovementInput{
		LineItems:   []LineItemInput{{SphID: 10, CylID: 20, Quantity: 9}},
		ActorUserID: 5,
	})
	require.NoError(t, err)
	r.lineItems.AssertExpectations(t)
	r.movements.AssertExpectations(t)
	r.audits.AssertExpectations(t)
}

func TestUpdate_Sale_IncreaseBeyondAvailable(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	current := model.Movement{
		ID: "mv-1", Kind: model.MovementSale, CategoryID: 3, Quantity: 4, IsActive: true,
		LineItems: []model.LineItem{{ID: 7, CategoryID: 3, SphID: 10, CylID: 20, Kind: model.MovementSale, Quantity: 4, IsActive: true}},
	}
	r.movements.On("FindByID", mock.Anything, "mv-1").Return(current, nil)
	r.catalog.On("LockCategory", mock.Anything, int64(3)).Return(nil)
	r.lineItems.On("ListActive", mock.Anything, repo.LineItemQuery{CategoryID: 3}).
		Return([]model.LineItem{incomeItem(10, 20, 10), current.LineItems[0]}, nil)

	_, err := uc.Update(context.Background(), "mv-1", UpdateMovementInput{
		LineItems: []LineItemInput{{SphID: 10, CylID: 20, Quantity: 11}},
	})

	var ise *stock.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(7), ise.Requested)
	assert.Equal(t, int64(6), ise.Available)
	r.lineItems.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReverse_AlreadyInactive(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	r.movements.On("FindByID", mock.Anything, "mv-1").Return(model.Movement{ID: "mv-1", IsActive: false}, nil)

	_, err := uc.Reverse(context.Background(), "mv-1", 1)
	assert.ErrorIs(t, err, ErrAlreadyInactive)
	r.movements.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestReverse_Sale_GivesBack(t *testing.T) {
	r := newTxReposMock()
	uc, _, locker := newMovementUC(r)

	sale := model.Movement{
		ID: "mv-1", Kind: model.MovementSale, CategoryID: 3, Quantity: 4, IsActive: true,
		LineItems: []model.LineItem{{ID: 7, CategoryID: 3, SphID: 10, CylID: 20, Kind: model.MovementSale, Quantity: 4, IsActive: true}},
	}
	r.movements.On("FindByID", mock.Anything, "mv-1").Return(sale, nil)
	r.catalog.On("LockCategory", mock.Anything, int64(3)).Return(nil)
	r.lineItems.On("ListActive", mock.Anything, repo.LineItemQuery{CategoryID: 3}).
		Return([]model.LineItem{incomeItem(10, 20, 10), sale.LineItems[0]}, nil)
	r.movements.On("Deactivate", mock.Anything, "mv-1").Return(true, nil)
	r.lineItems.On("DeactivateByMovement", mock.Anything, "mv-1").Return(nil)
	r.audits.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionReverseMovement && l.ActorUserID == 1 &&
			strings.Contains(l.AfterJSON, `"delta":4`)
	})).Return(nil)

	out, err := uc.Reverse(context.Background(), "mv-1", 1)
	require.NoError(t, err)
	r.audits.AssertExpectations(t)
	assert.Equal(t, []Compensation{{SphID: 10, CylID: 20, Delta: 4, AvailableAfter: 10}}, out.Compensations)

	// movementキー → 在庫キーの順
	require.Len(t, locker.acquired, 2)
	assert.Equal(t, []string{"movement:mv-1"}, locker.acquired[0])
	assert.Equal(t, []string{"stock:3:10:20"}, locker.acquired[1])
}

func TestReverse_Income_WouldGoNegative(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	income := model.Movement{
		ID: "mv-1", Kind: model.MovementIncome, CategoryID: 3, Quantity: 10, IsActive: true,
		LineItems: []model.LineItem{incomeItem(10, 20, 10)},
	}
	sold := model.LineItem{CategoryID: 3, SphID: 10, CylID: 20, Kind: model.MovementSale, Quantity: 4, IsActive: true}
	r.movements.On("FindByID", mock.Anything, "mv-1").Return(income, nil)
	r.catalog.On("LockCategory", mock.Anything, int64(3)).Return(nil)
	r.lineItems.On("ListActive", mock.Anything, repo.LineItemQuery{CategoryID: 3}).
		Return([]model.LineItem{income.LineItems[0], sold}, nil)

	_, err := uc.Reverse(context.Background(), "mv-1", 1)

	var ise *stock.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(10), ise.Requested)
	assert.Equal(t, int64(6), ise.Available)
	r.movements.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestReverse_LostRace(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	out := model.Movement{ID: "mv-1", Kind: model.MovementOutput, CategoryID: 3, IsActive: true}
	r.movements.On("FindByID", mock.Anything, "mv-1").Return(out, nil)
	r.catalog.On("LockCategory", mock.Anything, int64(3)).Return(nil)
	r.lineItems.On("ListActive", mock.Anything, mock.Anything).Return([]model.LineItem{}, nil)
	r.movements.On("Deactivate", mock.Anything, "mv-1").Return(false, nil)

	_, err := uc.Reverse(context.Background(), "mv-1", 1)
	assert.ErrorIs(t, err, ErrAlreadyInactive)
}

func TestList_Validation(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	_, err := uc.List(context.Background(), ListMovementsInput{Kind: model.MovementSale, Page: 0, Limit: 10})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)

	_, err = uc.List(context.Background(), ListMovementsInput{Kind: model.MovementSale, Page: 1, Limit: 10, Date: "01/02/2026"})
	assert.EqualError(t, err, "400: invalid date")
}

func TestList_TotalPages(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	r.movements.On("List", mock.Anything, repo.MovementListQuery{Kind: model.MovementIncome, Page: 1, Limit: 10, Day: &day}).
		Return([]model.Movement{{ID: "a"}}, int64(21), nil)

	out, err := uc.List(context.Background(), ListMovementsInput{Kind: model.MovementIncome, Page: 1, Limit: 10, Date: "2026-01-02"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.TotalPages)
	assert.Len(t, out.Items, 1)
}

func TestGetAvailability(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	sph, cyl := int64(10), int64(20)
	r.catalog.On("FindCategory", mock.Anything, int64(3)).Return(model.Category{ID: 3}, nil)
	r.catalog.On("FindSph", mock.Anything, sph).Return(model.Sph{ID: sph}, nil)
	r.catalog.On("FindCyl", mock.Anything, cyl).Return(model.Cyl{ID: cyl}, nil)
	r.lineItems.On("ListActive", mock.Anything, repo.LineItemQuery{CategoryID: 3, SphID: &sph, CylID: &cyl}).
		Return([]model.LineItem{
			incomeItem(10, 20, 10),
			{CategoryID: 3, SphID: 10, CylID: 20, Kind: model.MovementOutput, Quantity: 3, IsActive: true},
		}, nil)

	out, err := uc.GetAvailability(context.Background(), 3, sph, cyl)
	require.NoError(t, err)
	assert.Equal(t, AvailabilityOutput{CategoryID: 3, SphID: 10, CylID: 20, Income: 10, Consumed: 3, Available: 7}, out)
}

func TestGetAvailability_InvalidCyl(t *testing.T) {
	r := newTxReposMock()
	uc, _, _ := newMovementUC(r)

	r.catalog.On("FindCategory", mock.Anything, int64(3)).Return(model.Category{ID: 3}, nil)
	r.catalog.On("FindSph", mock.Anything, int64(10)).Return(model.Sph{ID: 10}, nil)
	r.catalog.On("FindCyl", mock.Anything, int64(99)).Return(model.Cyl{}, repo.ErrNotFound)

	_, err := uc.GetAvailability(context.Background(), 3, 10, 99)

	var ir *InvalidReferenceError
	require.ErrorAs(t, err, &ir)
	assert.Equal(t, int64(99), ir.CylID)
}
