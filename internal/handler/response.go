package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lensstock/internal/domain/stock"
	"lensstock/internal/middleware"
	"lensstock/internal/usecase"
	auth "lensstock/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

// エラー時のJSON。detailは在庫不足などの付加情報
type ErrorResponse struct {
	Error  string      `json:"error"`
	Detail interface{} `json:"detail,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// usecaseのエラーをステータスに変換する
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	var (
		mf  *usecase.MissingFieldsError
		nf  *usecase.NotFoundError
		ir  *usecase.InvalidReferenceError
		dup *usecase.DuplicateLineItemError
		ise *stock.InsufficientStockError
		se  *usecase.StorageError
	)
	switch {
	case errors.As(err, &mf):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing required fields", Detail: mf})
	case errors.As(err, &ir):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reference", Detail: ir})
	case errors.As(err, &dup):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "duplicate line item", Detail: dup})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Detail: nf})
	case errors.As(err, &ise):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "insufficient stock", Detail: ise})
	case errors.Is(err, usecase.ErrAlreadyInactive):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "movement is already inactive"})
	case errors.As(err, &se):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable"})
	}

	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
	case errors.Is(err, auth.ErrUserInactive), errors.Is(err, auth.ErrRoleNotAllowed):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidEmailFormat),
		errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrUsernameAlreadyExists):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func getRoleFromContext(c echo.Context) string {
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return role
}

// クエリの整数。空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// クエリ/パスのID。空や不正は0（usecase側で必須エラーになる）
func parseID(v string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// "2006-01-02" か RFC3339
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
