package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/safar/go-sql-shop/internal/checkout"
)

type checkoutHTTP struct {
	svc CheckoutService
}

type checkoutResponse struct {
	Message string `json:"message"`
	checkout.Receipt
}

func (h *checkoutHTTP) Checkout(c echo.Context) error {
	receipt, err := h.svc.Checkout(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkoutResponse{Message: "Checkout successful", Receipt: *receipt})
}
