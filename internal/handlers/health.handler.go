package handlers

import (
	"context"

	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
)

type HealthService interface {
	Check(ctx context.Context) map[string]error
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(svc HealthService) *HealthHandler {
	return &HealthHandler{
		svc: svc,
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	failures := h.svc.Check(ctx)
	if len(failures) == 0 {
		writeJSON(ctx, xhttp.StatusOK, healthResponse{Status: "ok"})
		return
	}

	res := healthResponse{Status: "degraded", Failed: make(map[string]string, len(failures))}
	for name, err := range failures {
		res.Failed[name] = err.Error()
	}
	writeJSON(ctx, xhttp.StatusServiceUnavailable, res)
}
