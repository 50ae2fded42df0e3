package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"lensstock/internal/domain/model"
	"lensstock/internal/repository"
)

// ユーザー作成の入力（管理者のみ）
type CreateUserInput struct {
	Username string
	Password string
	Role     model.Role
	FullName string
	DNI      string
	Phone    string
	Address  string
	Email    string
	StoreID  *int64
}

var (
	// 入力が不正
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidRole        = errors.New("invalid role")

	// 競合
	ErrUsernameAlreadyExists = errors.New("username already exists")

	// adminはsuperadminを作れない
	ErrRoleNotAllowed = errors.New("role not allowed")
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type CreateUserUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
}

// DI
func NewCreateUserUsecase(userRepo repository.UserRepository, hasher PasswordHasher) *CreateUserUsecase {
	return &CreateUserUsecase{userRepo: userRepo, hasher: hasher}
}

// actorRoleは作成する側のロール
func (u *CreateUserUsecase) Execute(ctx context.Context, actorRole model.Role, in CreateUserInput) (model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > 100 || strings.ContainsAny(username, " \t") {
		return model.User{}, ErrInvalidUsername
	}

	// password の長さチェック（最小8文字）
	if len(in.Password) < 8 {
		return model.User{}, ErrPasswordTooShort
	}
	if isWeakPassword(in.Password) {
		return model.User{}, ErrWeakPassword
	}

	role := in.Role
	if role == "" {
		role = model.RoleSeller
	}
	switch role {
	case model.RoleSeller, model.RoleAdmin:
	case model.RoleSuperAdmin:
		if actorRole != model.RoleSuperAdmin {
			return model.User{}, ErrRoleNotAllowed
		}
	default:
		return model.User{}, ErrInvalidRole
	}

	if in.Email != "" && !isValidEmailFormat(in.Email) {
		return model.User{}, ErrInvalidEmailFormat
	}

	// username重複チェック
	_, err := u.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return model.User{}, ErrUsernameAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
		FullName:     strings.TrimSpace(in.FullName),
		DNI:          strings.TrimSpace(in.DNI),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Email:        strings.TrimSpace(in.Email),
		StoreID:      in.StoreID,
	}
	if err := u.userRepo.Create(ctx, &user); err != nil {
		//チェック後に同名が入った
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, ErrUsernameAlreadyExists
		}
		return model.User{}, err
	}
	return user, nil
}

// メールチェック
func isValidEmailFormat(email string) bool {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return false
	}
	_, err := mail.ParseAddress(trimmed)
	return err == nil
}

// よくある弱いパスワード
func isWeakPassword(password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(password))

	weak := map[string]struct{}{
		"password":    {},
		"password123": {},
		"12345678":    {},
		"1234567890":  {},
		"qwertyuiop":  {},
		"letmein1":    {},
		"admin123":    {},
	}

	_, ok := weak[normalized]
	return ok
}
