package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/context"
)

// Logger writes one structured line per request. Server errors log at error
// level, client errors at warn, the rest at info.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			ctx := req.Context()

			fields := context.LogFields(ctx)
			fields["method"] = req.Method
			fields["route"] = c.Path()
			fields["uri"] = req.RequestURI
			fields["status"] = res.Status
			fields["remote_ip"] = c.RealIP()
			fields["user_agent"] = req.UserAgent()
			fields["duration_ms"] = time.Since(start).Milliseconds()
			fields["response_size"] = res.Size
			if runID := res.Header().Get(HeaderRunID); runID != "" {
				fields["run_id"] = runID
			}

			log := logger.WithContext(ctx).WithFields(fields)
			switch {
			case res.Status >= 500:
				log.Error("Request")
			case res.Status >= 400:
				log.Warn("Request")
			default:
				log.Info("Request")
			}
			return nil
		}
	}
}
