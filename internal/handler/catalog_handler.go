package handler

import (
	"net/http"

	"lensstock/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ClientCreateRequest struct {
	FullName string `json:"full_name"`
	Address  string `json:"address"`
}

// カテゴリ・度数・顧客・在庫一覧
type CatalogHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewCatalogHandler(uc *usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

func (h *CatalogHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/categories", h.listCategories)
	g.GET("/categories/:id/stock", h.stock)
	g.GET("/sph", h.listSph)
	g.GET("/cyl", h.listCyl)
	g.GET("/clients", h.listClients)
	g.POST("/clients", h.createClient)
}

func pageInput(c echo.Context) (usecase.PageInput, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return usecase.PageInput{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return usecase.PageInput{}, usecase.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return usecase.PageInput{Page: page, Limit: limit, Q: c.QueryParam("q")}, nil
}

func (h *CatalogHandler) listCategories(c echo.Context) error {
	in, err := pageInput(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListCategories(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) listClients(c echo.Context) error {
	in, err := pageInput(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListClients(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) createClient(c echo.Context) error {
	var req ClientCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	client, err := h.uc.CreateClient(c.Request().Context(), usecase.CreateClientInput{
		FullName: req.FullName,
		Address:  req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, client)
}

func (h *CatalogHandler) listSph(c echo.Context) error {
	out, err := h.uc.ListSph(c.Request().Context(), c.QueryParam("sign"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) listCyl(c echo.Context) error {
	out, err := h.uc.ListCyl(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) stock(c echo.Context) error {
	out, err := h.uc.StockReport(c.Request().Context(), parseID(c.Param("id")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
