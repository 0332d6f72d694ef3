package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, c *Checker, path string) (int, Response) {
	t.Helper()
	e := echo.New()
	c.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestChecker(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("liveness is always healthy", func(t *testing.T) {
		code, resp := serve(t, NewChecker("test"), "/api/v1/health/live")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, StatusHealthy, resp.Status)
	})

	t.Run("readiness is unavailable before startup completes", func(t *testing.T) {
		code, resp := serve(t, NewChecker("test"), "/api/v1/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, resp.Checks, "startup")
	})

	t.Run("all checks passing", func(t *testing.T) {
		c := NewChecker("test")
		c.AddCheck("database", ok)
		c.SetReady(true)

		code, resp := serve(t, c, "/api/v1/health/ready")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, StatusHealthy, resp.Status)
	})

	t.Run("optional failure degrades", func(t *testing.T) {
		c := NewChecker("test")
		c.AddCheck("database", ok)
		c.AddOptionalCheck("cache", down)

		code, resp := serve(t, c, "/api/v1/health")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, StatusDegraded, resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["cache"].Message)
	})

	t.Run("critical failure is unhealthy", func(t *testing.T) {
		c := NewChecker("test")
		c.AddCheck("database", down)

		code, resp := serve(t, c, "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, StatusUnhealthy, resp.Status)
	})
}
