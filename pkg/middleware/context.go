package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/context"
)

// HeaderRunID lets a caller choose the run ID of the reconciliation it starts
const HeaderRunID = "X-Run-Id"

// Context copies request metadata onto the request context. The request ID
// is echoed back; a run ID header is accepted only when it is a valid uuid.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			ctx = context.SetRequestID(ctx, requestID)

			if runID := req.Header.Get(HeaderRunID); runID != "" {
				if _, err := uuid.Parse(runID); err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "X-Run-Id must be a uuid")
				}
				c.Response().Header().Set(HeaderRunID, runID)
				ctx = context.SetRunID(ctx, runID)
			}

			ctx = context.SetMethod(ctx, req.Method)
			ctx = context.SetRoute(ctx, c.Path())
			ctx = context.SetRemoteIP(ctx, c.RealIP())

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
