package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
)

type ProfileService interface {
	EnsureProfile(ctx context.Context, callerID uuid.UUID, req model.EnsureProfileRequest) (*model.Profile, error)
	Me(ctx context.Context, callerID uuid.UUID) (*model.Me, error)
	Referred(ctx context.Context, callerID uuid.UUID) ([]*model.Profile, error)
	SetAdmin(ctx context.Context, callerID uuid.UUID, req model.SetAdminRequest) (*model.Profile, error)
}

type ProfileHandler struct {
	svc ProfileService
}

func RegisterProfileRoutes(e *router.Group, a *Authenticator, h *ProfileHandler) {
	e.POST("/profile/ensure", a.Secure(h.EnsureProfile))
	e.GET("/me", a.Secure(h.Me))
	e.GET("/me/referrals", a.Secure(h.Referrals))
	e.POST("/admin/set-admin", a.Secure(h.SetAdmin))
}

func NewProfileHandler(svc ProfileService) *ProfileHandler {
	return &ProfileHandler{
		svc: svc,
	}
}

type ensureProfileResponse struct {
	ID   uuid.UUID  `json:"id"`
	Role model.Role `json:"role"`
}

func (h *ProfileHandler) EnsureProfile(ctx *xhttp.RequestCtx) {
	var req model.EnsureProfileRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	p, err := h.svc.EnsureProfile(ctx, callerID(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, ensureProfileResponse{ID: p.ID, Role: p.Role})
}

func (h *ProfileHandler) Me(ctx *xhttp.RequestCtx) {
	me, err := h.svc.Me(ctx, callerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, me)
}

func (h *ProfileHandler) Referrals(ctx *xhttp.RequestCtx) {
	list, err := h.svc.Referred(ctx, callerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Profile]{Items: list, Total: int64(len(list))})
}

func (h *ProfileHandler) SetAdmin(ctx *xhttp.RequestCtx) {
	var req model.SetAdminRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	p, err := h.svc.SetAdmin(ctx, callerID(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}
