package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newSecuredEcho(required bool, key string) *echo.Echo {
	e := echo.New()
	e.Use(APIKey(required, key))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.POST("/api/v1/tokenize", ok)
	e.GET("/health", ok)
	e.GET("/health/detailed", ok)
	e.GET("/metrics", ok)
	return e
}

func do(e *echo.Echo, method, path, apiKey string) int {
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAPIKeyRequired(t *testing.T) {
	e := newSecuredEcho(true, "secret")

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/api/v1/tokenize", ""))
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/api/v1/tokenize", "wrong"))
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/v1/tokenize", "secret"))
}

func TestAPIKeySkipsProbeEndpoints(t *testing.T) {
	e := newSecuredEcho(true, "secret")

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health/detailed", ""))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/metrics", ""))
}

func TestAPIKeyDisabled(t *testing.T) {
	e := newSecuredEcho(false, "")

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/v1/tokenize", ""))
}

func TestRequestIDAssigned(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	// caller-provided IDs are echoed back
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "my-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "my-id", rec.Header().Get(requestIDHeader))
}
