package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
)

type ReportService interface {
	Revenue(ctx context.Context, callerID uuid.UUID) (*model.RevenueReport, error)
	Dashboard(ctx context.Context, callerID uuid.UUID) (*model.DashboardStats, error)
	Users(ctx context.Context, callerID uuid.UUID) ([]model.UserStats, error)
}

type ReportHandler struct {
	svc ReportService
}

func RegisterReportRoutes(e *router.Group, a *Authenticator, h *ReportHandler) {
	e.GET("/reports/revenue", a.Secure(h.Revenue))
	e.GET("/reports/dashboard", a.Secure(h.Dashboard))
	e.GET("/reports/users", a.Secure(h.Users))
}

func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{
		svc: svc,
	}
}

func (h *ReportHandler) Revenue(ctx *xhttp.RequestCtx) {
	r, err := h.svc.Revenue(ctx, callerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, r)
}

func (h *ReportHandler) Dashboard(ctx *xhttp.RequestCtx) {
	d, err := h.svc.Dashboard(ctx, callerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}

func (h *ReportHandler) Users(ctx *xhttp.RequestCtx) {
	list, err := h.svc.Users(ctx, callerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[model.UserStats]{Items: list, Total: int64(len(list))})
}
