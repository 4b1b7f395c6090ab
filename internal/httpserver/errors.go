package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/cart"
	"github.com/safar/go-sql-shop/internal/catalog"
	"github.com/safar/go-sql-shop/internal/checkout"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/store"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func validationMessage(err error) string {
	msg := strings.ReplaceAll(err.Error(), "validation: ", "")
	return strings.ReplaceAll(msg, "\n", "; ")
}

// statusFor maps an error returned by a handler to an HTTP status and a
// client-facing message. Unknown errors become a generic 500.
func statusFor(err error) (int, string) {
	var (
		httpErr  *echo.HTTPError
		stockErr *checkout.InsufficientStockError
		tooMany  *auth.TooManyAttemptsError
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, fmt.Sprint(httpErr.Message)

	case errors.As(err, &stockErr):
		return http.StatusBadRequest, "Insufficient stock for " + stockErr.ProductName
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, "Cart is empty"
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusBadRequest, "Payment failed"
	case errors.Is(err, checkout.ErrCheckoutFailed):
		return http.StatusInternalServerError, "Checkout failed"

	case errors.Is(err, cart.ErrEmptyCart):
		return http.StatusNotFound, "Cart is empty"
	case errors.Is(err, database.ErrInsufficientStock):
		return http.StatusBadRequest, "Insufficient stock"

	case errors.Is(err, auth.ErrValidation),
		errors.Is(err, catalog.ErrValidation),
		errors.Is(err, cart.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)

	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusBadRequest, "Email already registered."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid authentication credentials"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusUnauthorized, "User not found"
	case errors.Is(err, auth.ErrEmailNotFound):
		return http.StatusNotFound, "Email not found"
	case errors.Is(err, auth.ErrInvalidResetToken):
		return http.StatusBadRequest, "Invalid or expired reset token"
	case errors.As(err, &tooMany):
		return http.StatusTooManyRequests, "Too many failed sign-in attempts, try again later"

	case errors.Is(err, database.ErrProductNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, database.ErrCartItemNotFound):
		return http.StatusNotFound, "Cart item not found"
	case errors.Is(err, database.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, store.ErrInvalidCursor):
		return http.StatusBadRequest, "Invalid cursor"
	}

	switch database.ClassifyError(err) {
	case database.ErrorClassCheckViolation:
		return http.StatusBadRequest, "Value out of range"
	case database.ErrorClassSerialization:
		return http.StatusConflict, "Concurrent update, please retry"
	}

	return http.StatusInternalServerError, "Internal server error"
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := statusFor(err)

	switch code {
	case http.StatusUnauthorized:
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	case http.StatusTooManyRequests:
		var tooMany *auth.TooManyAttemptsError
		if errors.As(err, &tooMany) {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(tooMany.RetryAfter.Seconds())+1))
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorBody{Error: true, Message: message, Code: code})
}
