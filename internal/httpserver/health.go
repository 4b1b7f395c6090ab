package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/safar/go-sql-shop/internal/logging"
)

type healthHTTP struct {
	db Pinger
}

func (h *healthHTTP) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logging.FromContext(ctx).Error("readiness check failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Database unavailable")
	}
	return c.NoContent(http.StatusOK)
}
