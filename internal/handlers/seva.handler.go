package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
)

type SevaService interface {
	Create(ctx context.Context, callerID uuid.UUID, req model.SevaRequest) (*model.Seva, error)
	Update(ctx context.Context, callerID, id uuid.UUID, req model.SevaRequest) (*model.Seva, error)
	Delete(ctx context.Context, callerID, id uuid.UUID) error
	Get(ctx context.Context, callerID, id uuid.UUID) (*model.Seva, error)
	List(ctx context.Context, callerID uuid.UUID) ([]*model.Seva, error)
	ListForUser(ctx context.Context, callerID uuid.UUID) ([]model.UserSevaStats, error)
}

type SevaHandler struct {
	svc SevaService
}

func RegisterSevaRoutes(e *router.Group, a *Authenticator, h *SevaHandler) {
	e.GET("/sevas", a.Secure(h.ListSevas))
	e.POST("/sevas", a.Secure(h.CreateSeva))
	e.GET("/sevas/{id}", a.Secure(h.GetSeva))
	e.PUT("/sevas/{id}", a.Secure(h.UpdateSeva))
	e.DELETE("/sevas/{id}", a.Secure(h.DeleteSeva))
}

func NewSevaHandler(svc SevaService) *SevaHandler {
	return &SevaHandler{
		svc: svc,
	}
}

// ListSevas returns active sevas with the caller's own counts. With
// ?all=true it returns the plain list instead, inactive ones included for
// admins.
func (h *SevaHandler) ListSevas(ctx *xhttp.RequestCtx) {
	if strings.EqualFold(query(ctx, "all"), "true") {
		list, err := h.svc.List(ctx, callerID(ctx))
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Seva]{Items: list, Total: int64(len(list))})
		return
	}

	stats, err := h.svc.ListForUser(ctx, callerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[model.UserSevaStats]{Items: stats, Total: int64(len(stats))})
}

func (h *SevaHandler) GetSeva(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	s, err := h.svc.Get(ctx, callerID(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *SevaHandler) CreateSeva(ctx *xhttp.RequestCtx) {
	var req model.SevaRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	s, err := h.svc.Create(ctx, callerID(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, s)
}

func (h *SevaHandler) UpdateSeva(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.SevaRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	s, err := h.svc.Update(ctx, callerID(ctx), id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *SevaHandler) DeleteSeva(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if err := h.svc.Delete(ctx, callerID(ctx), id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
