package repository

import (
	"context"
	"errors"
	"time"

	repo "lensstock/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txReposGorm struct {
	movements repo.MovementRepository
	lineItems repo.LineItemRepository
	catalog   repo.CatalogRepository
	users     repo.UserRepository
	audits    repo.AuditLogRepository
}

func (r *txReposGorm) Movements() repo.MovementRepository { return r.movements }
func (r *txReposGorm) LineItems() repo.LineItemRepository { return r.lineItems }
func (r *txReposGorm) Catalog() repo.CatalogRepository    { return r.catalog }
func (r *txReposGorm) Users() repo.UserRepository         { return r.users }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return r.audits }

// リトライ間隔の基準
const retryBackoff = 20 * time.Millisecond

type TxManagerGorm struct {
	db         *gorm.DB
	maxRetries int
	log        *zap.Logger
}

func NewTxManagerGorm(db *gorm.DB, maxRetries int, log *zap.Logger) *TxManagerGorm {
	if log == nil {
		log = zap.NewNop()
	}
	return &TxManagerGorm{db: db, maxRetries: maxRetries, log: log}
}

// 直列化失敗・デッドロックはmaxRetries回まで最初からやり直す
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	for attempt := 0; ; attempt++ {
		err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			//repoはtxを持ったDBで作り直す
			r := &txReposGorm{
				movements: NewMovementGormRepository(tx),
				lineItems: NewLineItemGormRepository(tx),
				catalog:   NewCatalogGormRepository(tx),
				users:     NewUserGormRepository(tx),
				audits:    NewAuditLogGormRepository(tx),
			}
			return fn(r)
		})
		if err == nil || !IsRetryable(err) || attempt >= tm.maxRetries {
			return err
		}

		tm.log.Warn("retrying transaction", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
}

// 40001 serialization_failure / 40P01 deadlock_detected
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
