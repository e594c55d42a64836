package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"thai-search-proxy/domain"
	"thai-search-proxy/logger"
)

// errorResponse is the single error shape every endpoint returns.
type errorResponse struct {
	Error   domain.ErrorKind `json:"error"`
	Message string           `json:"message"`
	Details map[string]any   `json:"details,omitempty"`
}

// statusOf maps error kinds to HTTP statuses. This is the only place in the
// service where that mapping exists.
func statusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDuplicateEntry:
		return http.StatusConflict
	case domain.KindBackpressure:
		return http.StatusTooManyRequests
	case domain.KindBackendUnavailable, domain.KindBackendAllFailed,
		domain.KindBackend4xx, domain.KindBackend5xx:
		return http.StatusBadGateway
	case domain.KindBackendTimeout, domain.KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	status := statusOf(kind)

	resp := errorResponse{Error: kind, Message: err.Error()}
	var pe *domain.ProxyError
	if errors.As(err, &pe) {
		if pe.Message != "" {
			resp.Message = pe.Message
		}
		resp.Details = pe.Details
	}

	log := logger.WithContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "kind", kind, "status", status, "error", err)
	} else {
		log.Warn("request rejected", "kind", kind, "status", status, "error", err)
	}

	return c.JSON(status, resp)
}
