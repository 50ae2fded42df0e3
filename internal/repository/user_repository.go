package repository

import (
	"context"

	"lensstock/internal/domain/model"
)

// ユーザーの保存・取得を約束
type UserRepository interface {
	// usernameが既にあればErrDuplicate
	Create(ctx context.Context, user *model.User) error
	// 見つからなければErrNotFound
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	// roleが空なら全件。id昇順
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
}
