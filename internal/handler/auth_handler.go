package handler

import (
	"net/http"

	"lensstock/internal/domain/model"
	auth "lensstock/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

// /auth/login のリクエストボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/users のリクエストボディ。
type createUserRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
	FullName string     `json:"full_name"`
	DNI      string     `json:"dni"`
	Phone    string     `json:"phone"`
	Address  string     `json:"address"`
	Email    string     `json:"email"`
	StoreID  *int64     `json:"store_id"`
}

type AuthHandler struct {
	loginUC      *auth.LoginUsecase      // ログインusecase
	createUserUC *auth.CreateUserUsecase // ユーザー作成usecase（admin）
	listUsersUC  *auth.ListUsersUsecase
}

// DIコンストラクタ
func NewAuthHandler(loginUC *auth.LoginUsecase, createUserUC *auth.CreateUserUsecase, listUsersUC *auth.ListUsersUsecase) *AuthHandler {
	return &AuthHandler{loginUC: loginUC, createUserUC: createUserUC, listUsersUC: listUsersUC}
}

// Loginは POST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}

	//JSONレスポンス（user + token）
	return c.JSON(http.StatusOK, out)
}

// CreateUserは POST /api/users のハンドラ。RequireRoleの後ろに置く
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	user, err := h.createUserUC.Execute(c.Request().Context(), model.Role(getRoleFromContext(c)), auth.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		FullName: req.FullName,
		DNI:      req.DNI,
		Phone:    req.Phone,
		Address:  req.Address,
		Email:    req.Email,
		StoreID:  req.StoreID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsersは GET /api/users?role=seller|admin|superadmin のハンドラ。
func (h *AuthHandler) ListUsers(c echo.Context) error {
	users, err := h.listUsersUC.Execute(c.Request().Context(), model.Role(c.QueryParam("role")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": users})
}
