package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Movements() MovementRepository
	LineItems() LineItemRepository
	Catalog() CatalogRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnはリトライで複数回呼ばれることがある。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
