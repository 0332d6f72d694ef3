package reconciliation

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/middleware"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/report"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/utils"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/verification"
)

// Runner executes reconciliation requests
type Runner interface {
	Run(ctx context.Context, req verification.Request) (*report.Report, error)
}

type handler struct {
	runner Runner
}

// Register registers reconciliation routes
func Register(g *echo.Group, runner Runner) {
	h := &handler{runner: runner}
	g.POST("", h.CreateReconciliation)
}

// CreateReconciliation runs a reconciliation and returns its report
func (h *handler) CreateReconciliation(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "reconciliation.CreateReconciliation")
	defer span.End()

	req, err := utils.BindRequest[verification.Request](c)
	if err != nil {
		return err
	}

	rep, err := h.runner.Run(ctx, req)
	if err != nil {
		return err
	}
	if rep.RunID != "" {
		c.Response().Header().Set(middleware.HeaderRunID, rep.RunID)
	}

	return c.JSON(http.StatusOK, rep)
}
