package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
)

type DonorService interface {
	Upsert(ctx context.Context, callerID uuid.UUID, req model.DonorUpsertRequest) (*model.Donor, error)
	Delete(ctx context.Context, callerID, id uuid.UUID) error
	Get(ctx context.Context, callerID, id uuid.UUID) (*model.Donor, error)
	List(ctx context.Context, callerID uuid.UUID, f model.DonorFilter) ([]*model.Donor, int64, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, callerID, donorID uuid.UUID, req model.RecordPaymentRequest) (*model.PaymentResult, error)
	ListPayments(ctx context.Context, callerID, donorID uuid.UUID) ([]*model.PaymentHistory, error)
}

type DonorHandler struct {
	donors   DonorService
	payments PaymentService
}

func RegisterDonorRoutes(e *router.Group, a *Authenticator, h *DonorHandler) {
	e.GET("/donors", a.Secure(h.ListDonors))
	e.POST("/donors", a.Secure(h.UpsertDonor))
	e.GET("/donors/{id}", a.Secure(h.GetDonor))
	e.PUT("/donors/{id}", a.Secure(h.UpdateDonor))
	e.DELETE("/donors/{id}", a.Secure(h.DeleteDonor))
	e.GET("/donors/{id}/payments", a.Secure(h.ListPayments))
	e.POST("/donors/{id}/payments", a.Secure(h.RecordPayment))
}

func NewDonorHandler(donors DonorService, payments PaymentService) *DonorHandler {
	return &DonorHandler{
		donors:   donors,
		payments: payments,
	}
}

func (h *DonorHandler) ListDonors(ctx *xhttp.RequestCtx) {
	f, err := donorFilter(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	list, total, err := h.donors.List(ctx, callerID(ctx), f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Donor]{Items: list, Total: total})
}

func donorFilter(ctx *xhttp.RequestCtx) (model.DonorFilter, error) {
	var (
		f   model.DonorFilter
		err error
	)
	if f.SevaID, err = queryUUID(ctx, "seva_id"); err != nil {
		return f, err
	}
	if f.AddedBy, err = queryUUID(ctx, "added_by"); err != nil {
		return f, err
	}
	if v := query(ctx, "status"); v != "" {
		status := model.PaymentStatus(v)
		if !status.Valid() {
			return f, errs.Validation("invalid status %q", v)
		}
		f.Status = &status
	}
	if f.Limit, err = queryInt(ctx, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(ctx, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// UpsertDonor creates a donor, or updates one when the body carries an id.
func (h *DonorHandler) UpsertDonor(ctx *xhttp.RequestCtx) {
	var req model.DonorUpsertRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	h.upsert(ctx, req)
}

func (h *DonorHandler) UpdateDonor(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.DonorUpsertRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	req.ID = &id
	h.upsert(ctx, req)
}

func (h *DonorHandler) upsert(ctx *xhttp.RequestCtx, req model.DonorUpsertRequest) {
	created := req.ID == nil
	d, err := h.donors.Upsert(ctx, callerID(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	status := xhttp.StatusOK
	if created {
		status = xhttp.StatusCreated
	}
	writeJSON(ctx, status, d)
}

func (h *DonorHandler) GetDonor(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	d, err := h.donors.Get(ctx, callerID(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}

func (h *DonorHandler) DeleteDonor(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if err := h.donors.Delete(ctx, callerID(ctx), id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *DonorHandler) ListPayments(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	list, err := h.payments.ListPayments(ctx, callerID(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.PaymentHistory]{Items: list, Total: int64(len(list))})
}

func (h *DonorHandler) RecordPayment(ctx *xhttp.RequestCtx) {
	id, err := pathUUID(ctx, "id")
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	var req model.RecordPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeBadJSON(ctx, err)
		return
	}
	res, err := h.payments.RecordPayment(ctx, callerID(ctx), id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}
