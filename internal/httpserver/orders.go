package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/safar/go-sql-shop/internal/models"
)

type orderHTTP struct {
	svc OrderService
}

type orderListResponse struct {
	Orders []models.Order `json:"orders"`
	Total  int            `json:"total"`
}

// List returns the whole history, or a cursor page when limit is given.
func (h *orderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUser(c).ID

	if c.QueryParam("limit") != "" {
		limit, err := queryInt(c, "limit", defaultPageSize)
		if err != nil {
			return err
		}
		page, err := h.svc.Page(ctx, userID, c.QueryParam("cursor"), clamp(limit, 1, maxPageSize))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, page)
	}

	orders, err := h.svc.List(ctx, userID)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(http.StatusOK, orderListResponse{Orders: orders, Total: len(orders)})
}

func (h *orderHTTP) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.svc.Get(c.Request().Context(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}
