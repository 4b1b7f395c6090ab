package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type cartHTTP struct {
	svc CartService
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

func (h *cartHTTP) Add(c echo.Context) error {
	var req addToCartRequest
	if err := c.Bind(&req); err != nil || req.ProductID <= 0 {
		return errInvalidBody
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if _, err := h.svc.Add(c.Request().Context(), currentUser(c).ID, req.ProductID, quantity); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "Item added to cart successfully"})
}

func (h *cartHTTP) View(c echo.Context) error {
	view, err := h.svc.View(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *cartHTTP) Update(c echo.Context) error {
	productID, err := pathID(c, "product_id")
	if err != nil {
		return err
	}

	var req updateCartRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	if err := h.svc.Update(c.Request().Context(), currentUser(c).ID, productID, req.Quantity); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Cart item updated successfully"})
}

func (h *cartHTTP) Remove(c echo.Context) error {
	productID, err := pathID(c, "product_id")
	if err != nil {
		return err
	}

	if err := h.svc.Remove(c.Request().Context(), currentUser(c).ID, productID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Cart item removed successfully"})
}
