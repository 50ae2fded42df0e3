package usecase

import (
	"context"
	"sync"
	"time"

	"lensstock/internal/domain/model"
	repo "lensstock/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	movements *MovementRepoMock
	lineItems *LineItemRepoMock
	catalog   *CatalogRepoMock
	users     *UserRepoMock
	audits    *AuditLogRepoMock
}

func newTxReposMock() *TxReposMock {
	return &TxReposMock{
		movements: &MovementRepoMock{},
		lineItems: &LineItemRepoMock{},
		catalog:   &CatalogRepoMock{},
		users:     &UserRepoMock{},
		audits:    &AuditLogRepoMock{},
	}
}

func (r *TxReposMock) Movements() repo.MovementRepository { return r.movements }
func (r *TxReposMock) LineItems() repo.LineItemRepository { return r.lineItems }
func (r *TxReposMock) Catalog() repo.CatalogRepository    { return r.catalog }
func (r *TxReposMock) Users() repo.UserRepository         { return r.users }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository { return r.audits }

// =====================
// Repository mocks
// =====================

type MovementRepoMock struct{ mock.Mock }

func (m *MovementRepoMock) Create(ctx context.Context, mv *model.Movement) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

func (m *MovementRepoMock) FindByID(ctx context.Context, id string) (model.Movement, error) {
	args := m.Called(ctx, id)
	mv, _ := args.Get(0).(model.Movement)
	return mv, args.Error(1)
}

func (m *MovementRepoMock) List(ctx context.Context, q repo.MovementListQuery) ([]model.Movement, int64, error) {
	args := m.Called(ctx, q)
	list, _ := args.Get(0).([]model.Movement)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MovementRepoMock) Update(ctx context.Context, mv model.Movement) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

func (m *MovementRepoMock) Deactivate(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type LineItemRepoMock struct{ mock.Mock }

func (m *LineItemRepoMock) CreateBulk(ctx context.Context, items []model.LineItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *LineItemRepoMock) UpdateQuantity(ctx context.Context, id int64, qty int64, unitPrice decimal.NullDecimal) error {
	args := m.Called(ctx, id, qty, unitPrice)
	return args.Error(0)
}

func (m *LineItemRepoMock) ListActive(ctx context.Context, q repo.LineItemQuery) ([]model.LineItem, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.LineItem)
	return items, args.Error(1)
}

func (m *LineItemRepoMock) DeactivateByMovement(ctx context.Context, movementID string) error {
	args := m.Called(ctx, movementID)
	return args.Error(0)
}

func (m *LineItemRepoMock) DeactivateByIDs(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type CatalogRepoMock struct{ mock.Mock }

func (m *CatalogRepoMock) FindCategory(ctx context.Context, id int64) (model.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

func (m *CatalogRepoMock) LockCategory(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CatalogRepoMock) ListCategories(ctx context.Context, q repo.PageQuery) ([]model.Category, int64, error) {
	args := m.Called(ctx, q)
	list, _ := args.Get(0).([]model.Category)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *CatalogRepoMock) FindClient(ctx context.Context, id int64) (model.Client, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Client)
	return c, args.Error(1)
}

func (m *CatalogRepoMock) CreateClient(ctx context.Context, c *model.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CatalogRepoMock) ListClients(ctx context.Context, q repo.PageQuery) ([]model.Client, int64, error) {
	args := m.Called(ctx, q)
	list, _ := args.Get(0).([]model.Client)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *CatalogRepoMock) FindSph(ctx context.Context, id int64) (model.Sph, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(model.Sph)
	return s, args.Error(1)
}

func (m *CatalogRepoMock) FindCyl(ctx context.Context, id int64) (model.Cyl, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Cyl)
	return c, args.Error(1)
}

func (m *CatalogRepoMock) ListSph(ctx context.Context, sign repo.SphSign) ([]model.Sph, error) {
	args := m.Called(ctx, sign)
	list, _ := args.Get(0).([]model.Sph)
	return list, args.Error(1)
}

func (m *CatalogRepoMock) ListCyl(ctx context.Context) ([]model.Cyl, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Cyl)
	return list, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	args := m.Called(ctx, role)
	u, _ := args.Get(0).([]model.User)
	return u, args.Error(1)
}

type AuditLogRepoMock struct{ mock.Mock }

func (m *AuditLogRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditLogRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type StockReportMock struct{ mock.Mock }

func (m *StockReportMock) StockByCategory(ctx context.Context, categoryID int64) ([]repo.StockRow, error) {
	args := m.Called(ctx, categoryID)
	rows, _ := args.Get(0).([]repo.StockRow)
	return rows, args.Error(1)
}

// =====================
// Locker / ID / Clock fakes
// =====================

// 取得したキーを記録するだけのロック
type fakeLocker struct {
	mu       sync.Mutex
	acquired [][]string
	released int
	err      error
}

func (l *fakeLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.acquired = append(l.acquired, keys)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

type fixedID string

func (f fixedID) NewID() string { return string(f) }

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }
