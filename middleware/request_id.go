package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"thai-search-proxy/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a UUID (or honours the caller's) and puts
// it in the context so all pipeline logs carry it.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			ctx := logger.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(requestIDHeader, id)
			return next(c)
		}
	}
}
