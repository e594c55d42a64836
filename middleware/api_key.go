package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const apiKeyHeader = "X-API-Key"

// APIKey rejects requests without the configured key. Health and metrics
// endpoints stay open so probes and scrapers keep working.
func APIKey(required bool, key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !required {
				return next(c)
			}
			path := c.Request().URL.Path
			if path == "/metrics" || strings.HasPrefix(path, "/health") {
				return next(c)
			}

			provided := c.Request().Header.Get(apiKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error":   "UNAUTHORIZED",
					"message": "missing or invalid API key",
				})
			}
			return next(c)
		}
	}
}
