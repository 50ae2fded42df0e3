package server

import (
	"net/http"

	"lensstock/internal/domain/model"
	"lensstock/internal/handler"
	"lensstock/internal/middleware"
	"lensstock/internal/repository"

	"github.com/labstack/echo/v4"
)

// ルーティングに必要なもの
type Handlers struct {
	Auth     *handler.AuthHandler
	Movement *handler.MovementHandler
	Catalog  *handler.CatalogHandler
	Users    repository.UserRepository
}

func RegisterRoutes(e *echo.Echo, jwtSecret string, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.POST("/auth/login", h.Auth.Login)

	api := e.Group("/api")
	api.Use(middleware.AuthJWT(jwtSecret))
	api.Use(middleware.ActiveUserGuard(h.Users))

	h.Movement.RegisterRoutes(api)
	h.Catalog.RegisterRoutes(api)

	//ユーザー作成と変更履歴はadmin以上
	adminOnly := middleware.RequireRole(string(model.RoleAdmin), string(model.RoleSuperAdmin))
	api.POST("/users", h.Auth.CreateUser, adminOnly)
	api.GET("/users", h.Auth.ListUsers, adminOnly)
	h.Movement.RegisterAuditRoutes(api, adminOnly)
}
