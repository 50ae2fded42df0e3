package handler

import (
	"net/http"

	"lensstock/internal/domain/model"
	"lensstock/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 入出庫の登録リクエスト。typeはパスで決まる
type MovementCreateRequest struct {
	Date       string                  `json:"date"`
	Quantity   int64                   `json:"quantity"`
	ClientID   int64                   `json:"client_id"`
	CategoryID int64                   `json:"category_id"`
	TotalPrice *decimal.Decimal        `json:"total_price"`
	LineItems  []usecase.LineItemInput `json:"line_items"`
}

// PATCH用。nilの項目は変更しない
type MovementUpdateRequest struct {
	Date       *string                 `json:"date"`
	ClientID   *int64                  `json:"client_id"`
	TotalPrice *decimal.Decimal        `json:"total_price"`
	LineItems  []usecase.LineItemInput `json:"line_items"`
}

// /api/records と /api/availability
type MovementHandler struct {
	uc *usecase.MovementUsecase
}

// DI
func NewMovementHandler(uc *usecase.MovementUsecase) *MovementHandler {
	return &MovementHandler{uc: uc}
}

// gは認証済みの/apiグループ
func (h *MovementHandler) RegisterRoutes(g *echo.Group) {
	for _, kind := range []model.MovementKind{model.MovementIncome, model.MovementOutput, model.MovementSale} {
		g.POST("/records/"+string(kind), h.create(kind))
		g.GET("/records/"+string(kind), h.list(kind))
	}
	g.GET("/records/:id", h.detail)
	g.PATCH("/records/:id", h.update)
	g.DELETE("/records/:id", h.reverse)
	g.GET("/availability", h.availability)
}

// 変更履歴はadmin以上。mwはロールガード
func (h *MovementHandler) RegisterAuditRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.GET("/records/:id/audit", h.auditLogs, mw...)
}

func (h *MovementHandler) create(kind model.MovementKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req MovementCreateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
		}

		userID, ok := getUserIDFromContext(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		}

		date, err := parseDate(req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date"})
		}

		m, err := h.uc.Create(c.Request().Context(), usecase.CreateMovementInput{
			Kind:       kind,
			Date:       date,
			Quantity:   req.Quantity,
			UserID:     userID,
			ClientID:   req.ClientID,
			CategoryID: req.CategoryID,
			TotalPrice: req.TotalPrice,
			LineItems:  req.LineItems,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, m)
	}
}

func (h *MovementHandler) list(kind model.MovementKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		// page（default 1）
		page, err := queryInt(c, "page", 1)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		// limit（default 20）
		limit, err := queryInt(c, "limit", 20)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}

		out, err := h.uc.List(c.Request().Context(), usecase.ListMovementsInput{
			Kind:  kind,
			Page:  page,
			Limit: limit,
			Date:  c.QueryParam("date"),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

// IDはUUID。形式違いはDBに投げずに404
func movementID(c echo.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", &usecase.NotFoundError{Entity: "movement", ID: id}
	}
	return id, nil
}

func (h *MovementHandler) detail(c echo.Context) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, err)
	}
	m, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MovementHandler) update(c echo.Context) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req MovementUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	in := usecase.UpdateMovementInput{
		ClientID:    req.ClientID,
		TotalPrice:  req.TotalPrice,
		LineItems:   req.LineItems,
		ActorUserID: actorID,
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date"})
		}
		in.Date = &d
	}

	m, err := h.uc.Update(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// DELETEは論理削除（取消）
func (h *MovementHandler) reverse(c echo.Context) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, err)
	}
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	out, err := h.uc.Reverse(c.Request().Context(), id, actorID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MovementHandler) availability(c echo.Context) error {
	out, err := h.uc.GetAvailability(
		c.Request().Context(),
		parseID(c.QueryParam("categoryId")),
		parseID(c.QueryParam("sphId")),
		parseID(c.QueryParam("cylId")),
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MovementHandler) auditLogs(c echo.Context) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), usecase.ListAuditLogsInput{
		MovementID: id,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
