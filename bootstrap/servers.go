package bootstrap

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"thai-search-proxy/config"
	"thai-search-proxy/middleware"
	"thai-search-proxy/rest"
	appOtel "thai-search-proxy/utils/otel"
)

// newEchoServer assembles the HTTP surface: middleware stack plus all proxy
// routes.
func newEchoServer(cfg *config.Config, otelCfg appOtel.Config, handler *rest.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = cfg.HTTP.ReadHeaderTimeout

	e.Use(echomw.Recover())
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(middleware.OTelStatus())
	}
	e.Use(middleware.RequestID())
	if len(cfg.HTTP.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSOrigins,
			AllowHeaders: []string{echo.HeaderContentType, "X-API-Key", "X-Request-ID"},
		}))
	}
	e.Use(middleware.APIKey(cfg.Security.APIKeyRequired, cfg.Security.APIKey))

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(ctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.ErrorContext(ctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	handler.Register(e)
	return e
}
