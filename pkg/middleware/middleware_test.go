package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/context"
)

func newTestEcho(handler echo.HandlerFunc) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.Use(Logger(logger))
	e.GET("/test", handler)
	return e
}

func do(e *echo.Echo, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if requestID != "" {
		req.Header.Set(echo.HeaderXRequestID, requestID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestContext(t *testing.T) {
	var gotID, gotMethod, gotRoute string
	e := newTestEcho(func(c echo.Context) error {
		ctx := c.Request().Context()
		gotID = context.GetRequestID(ctx)
		gotMethod = context.GetMethod(ctx)
		gotRoute = context.GetRoute(ctx)
		return c.NoContent(http.StatusNoContent)
	})

	t.Run("propagates the request id header", func(t *testing.T) {
		rec := do(e, "req-123")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "req-123", gotID)
		assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
		assert.Equal(t, http.MethodGet, gotMethod)
		assert.Equal(t, "/test", gotRoute)
	})

	t.Run("generates a request id", func(t *testing.T) {
		rec := do(e, "")
		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
		{"echo error", echo.NewHTTPError(http.StatusNotFound, "missing"), http.StatusNotFound, "missing"},
		{"http error", httperror.NewHTTPError(http.StatusBadRequest, "bad window"), http.StatusBadRequest, "bad window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(func(c echo.Context) error { return tt.err })
			rec := do(e, "req-err")

			require.Equal(t, tt.wantCode, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Message, tt.wantMsg)
			assert.Equal(t, "req-err", body.RequestID)
			assert.NotNil(t, body.Meta)
		})
	}
}

func TestContext_RunIDHeader(t *testing.T) {
	var gotRunID string
	e := newTestEcho(func(c echo.Context) error {
		gotRunID = context.GetRunID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	t.Run("accepts a uuid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRunID, "5b0e8d7c-3f0a-4c1e-9a57-3f8f3b0c2d11")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "5b0e8d7c-3f0a-4c1e-9a57-3f8f3b0c2d11", gotRunID)
		assert.Equal(t, gotRunID, rec.Header().Get(HeaderRunID))
	})

	t.Run("rejects anything else", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRunID, "run-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Message, "X-Run-Id")
	})
}
