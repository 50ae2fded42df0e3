package auth

import (
	"context"

	"lensstock/internal/domain/model"
	"lensstock/internal/repository"
)

// ロール別のユーザー一覧（管理者のみ）
type ListUsersUsecase struct {
	userRepo repository.UserRepository
}

func NewListUsersUsecase(userRepo repository.UserRepository) *ListUsersUsecase {
	return &ListUsersUsecase{userRepo: userRepo}
}

// roleが空なら全ロール
func (u *ListUsersUsecase) Execute(ctx context.Context, role model.Role) ([]model.User, error) {
	switch role {
	case "", model.RoleSeller, model.RoleAdmin, model.RoleSuperAdmin:
	default:
		return nil, ErrInvalidRole
	}
	return u.userRepo.ListByRole(ctx, role)
}
