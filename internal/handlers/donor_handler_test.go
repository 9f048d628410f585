package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDonorHandler_ListDonors(t *testing.T) {
	callerID := uuid.New()
	sevaID := uuid.New()

	t.Run("filters are parsed", func(t *testing.T) {
		donors := new(MockDonorService)
		donors.On("List", mock.Anything, callerID, mock.MatchedBy(func(f model.DonorFilter) bool {
			return f.SevaID != nil && *f.SevaID == sevaID &&
				f.Status != nil && *f.Status == model.PaymentStatusPartial &&
				f.AddedBy == nil && f.Limit == 10 && f.Offset == 20
		})).Return([]*model.Donor{{ID: uuid.New(), SevaID: sevaID}}, int64(31), nil)

		ctx := asCaller(setupTestContext("GET", "/api/v1/donors?seva_id="+sevaID.String()+"&status=partial&limit=10&offset=20", nil), callerID)
		NewDonorHandler(donors, new(MockPaymentService)).ListDonors(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var res listResponse[*model.Donor]
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.Equal(t, int64(31), res.Total)
		assert.Len(t, res.Items, 1)
		donors.AssertExpectations(t)
	})

	t.Run("bad status", func(t *testing.T) {
		donors := new(MockDonorService)
		ctx := asCaller(setupTestContext("GET", "/api/v1/donors?status=refunded", nil), callerID)
		NewDonorHandler(donors, new(MockPaymentService)).ListDonors(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		donors.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad seva_id", func(t *testing.T) {
		donors := new(MockDonorService)
		ctx := asCaller(setupTestContext("GET", "/api/v1/donors?seva_id=42", nil), callerID)
		NewDonorHandler(donors, new(MockPaymentService)).ListDonors(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	for _, q := range []string{"limit=abc", "offset=-5", "limit=1.5"} {
		t.Run("bad paging "+q, func(t *testing.T) {
			donors := new(MockDonorService)
			ctx := asCaller(setupTestContext("GET", "/api/v1/donors?"+q, nil), callerID)
			NewDonorHandler(donors, new(MockPaymentService)).ListDonors(ctx)

			assert.Equal(t, 400, ctx.Response.StatusCode())
			assert.Contains(t, string(ctx.Response.Body()), `"kind":"validation"`)
			donors.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDonorHandler_Upsert(t *testing.T) {
	callerID := uuid.New()
	sevaID := uuid.New()
	body := []byte(`{"seva_id":"` + sevaID.String() + `","donor_name":"Ravi","payment_mode":"Cash","total_amount":"1000"}`)

	t.Run("post creates", func(t *testing.T) {
		donors := new(MockDonorService)
		donors.On("Upsert", mock.Anything, callerID, mock.MatchedBy(func(r model.DonorUpsertRequest) bool {
			return r.ID == nil && r.SevaID == sevaID && r.TotalAmount.Equal(decimal.NewFromInt(1000))
		})).Return(&model.Donor{ID: uuid.New(), SevaID: sevaID, PaymentStatus: model.PaymentStatusPending}, nil)

		ctx := asCaller(setupTestContext("POST", "/api/v1/donors", body), callerID)
		NewDonorHandler(donors, new(MockPaymentService)).UpsertDonor(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		donors.AssertExpectations(t)
	})

	t.Run("put takes the id from the path", func(t *testing.T) {
		id := uuid.New()
		donors := new(MockDonorService)
		donors.On("Upsert", mock.Anything, callerID, mock.MatchedBy(func(r model.DonorUpsertRequest) bool {
			return r.ID != nil && *r.ID == id
		})).Return(&model.Donor{ID: id, SevaID: sevaID}, nil)

		ctx := asCaller(setupTestContext("PUT", "/api/v1/donors/"+id.String(), body), callerID)
		ctx.SetUserValue("id", id.String())
		NewDonorHandler(donors, new(MockPaymentService)).UpdateDonor(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		donors.AssertExpectations(t)
	})

	t.Run("full seva", func(t *testing.T) {
		donors := new(MockDonorService)
		donors.On("Upsert", mock.Anything, callerID, mock.Anything).Return(nil, errs.Conflict("seva has no free slots"))

		ctx := asCaller(setupTestContext("POST", "/api/v1/donors", body), callerID)
		NewDonorHandler(donors, new(MockPaymentService)).UpsertDonor(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		var res errorResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.Equal(t, errs.KindConflict, res.Kind)
		assert.Equal(t, "seva has no free slots", res.Error)
	})
}

func TestDonorHandler_RecordPayment(t *testing.T) {
	callerID := uuid.New()
	donorID := uuid.New()

	t.Run("recorded", func(t *testing.T) {
		payments := new(MockPaymentService)
		payments.On("RecordPayment", mock.Anything, callerID, donorID, mock.MatchedBy(func(r model.RecordPaymentRequest) bool {
			return r.Amount.Equal(decimal.NewFromInt(500)) && r.PaymentMode == model.PaymentModeUPI
		})).Return(&model.PaymentResult{
			Payment: &model.PaymentHistory{ID: uuid.New(), DonorID: donorID, Amount: decimal.NewFromInt(500)},
			Donor:   &model.Donor{ID: donorID, PaymentStatus: model.PaymentStatusPartial},
			Booked:  1,
		}, nil)

		ctx := asCaller(setupTestContext("POST", "/api/v1/donors/"+donorID.String()+"/payments", []byte(`{"amount":500,"payment_mode":"UPI"}`)), callerID)
		ctx.SetUserValue("id", donorID.String())
		NewDonorHandler(new(MockDonorService), payments).RecordPayment(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var res model.PaymentResult
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.Equal(t, model.PaymentStatusPartial, res.Donor.PaymentStatus)
		assert.Equal(t, int64(1), res.Booked)
		payments.AssertExpectations(t)
	})

	t.Run("amount above remaining", func(t *testing.T) {
		payments := new(MockPaymentService)
		payments.On("RecordPayment", mock.Anything, callerID, donorID, mock.Anything).
			Return(nil, errs.Validation("amount exceeds remaining balance"))

		ctx := asCaller(setupTestContext("POST", "/api/v1/donors/"+donorID.String()+"/payments", []byte(`{"amount":1500,"payment_mode":"Cash"}`)), callerID)
		ctx.SetUserValue("id", donorID.String())
		NewDonorHandler(new(MockDonorService), payments).RecordPayment(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("history of an unknown donor", func(t *testing.T) {
		payments := new(MockPaymentService)
		payments.On("ListPayments", mock.Anything, callerID, donorID).Return(nil, errs.NotFound("donor not found"))

		ctx := asCaller(setupTestContext("GET", "/api/v1/donors/"+donorID.String()+"/payments", nil), callerID)
		ctx.SetUserValue("id", donorID.String())
		NewDonorHandler(new(MockDonorService), payments).ListPayments(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}
