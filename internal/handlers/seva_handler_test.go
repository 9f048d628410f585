package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSevaHandler_ListSevas(t *testing.T) {
	callerID := uuid.New()
	seva := &model.Seva{ID: uuid.New(), Name: "Annadanam", TotalSlots: 10, BookedSlots: 3, IsActive: true}

	t.Run("default view carries caller stats", func(t *testing.T) {
		svc := new(MockSevaService)
		svc.On("ListForUser", mock.Anything, callerID).Return([]model.UserSevaStats{
			{Seva: seva, RemainingSlots: 7, BookedByMe: 2, BlockedByMe: 1},
		}, nil)

		ctx := asCaller(setupTestContext("GET", "/api/v1/sevas", nil), callerID)
		NewSevaHandler(svc).ListSevas(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var res listResponse[model.UserSevaStats]
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		require.Len(t, res.Items, 1)
		assert.Equal(t, int64(7), res.Items[0].RemainingSlots)
		assert.Equal(t, int64(2), res.Items[0].BookedByMe)
		svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("all=true returns the plain list", func(t *testing.T) {
		svc := new(MockSevaService)
		svc.On("List", mock.Anything, callerID).Return([]*model.Seva{seva}, nil)

		ctx := asCaller(setupTestContext("GET", "/api/v1/sevas?all=true", nil), callerID)
		NewSevaHandler(svc).ListSevas(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var res listResponse[*model.Seva]
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		require.Len(t, res.Items, 1)
		assert.Equal(t, "Annadanam", res.Items[0].Name)
	})
}

func TestSevaHandler_CreateSeva(t *testing.T) {
	callerID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := new(MockSevaService)
		svc.On("Create", mock.Anything, callerID, mock.MatchedBy(func(r model.SevaRequest) bool {
			return r.Name == "Archana" && r.TotalSlots == 5
		})).Return(&model.Seva{ID: uuid.New(), Name: "Archana", TotalSlots: 5, IsActive: true}, nil)

		ctx := asCaller(setupTestContext("POST", "/api/v1/sevas", []byte(`{"name":"Archana","total_slots":5}`)), callerID)
		NewSevaHandler(svc).CreateSeva(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("non-admin", func(t *testing.T) {
		svc := new(MockSevaService)
		svc.On("Create", mock.Anything, callerID, mock.Anything).Return(nil, errs.Authorization("manage_sevas required"))

		ctx := asCaller(setupTestContext("POST", "/api/v1/sevas", []byte(`{"name":"Archana","total_slots":5}`)), callerID)
		NewSevaHandler(svc).CreateSeva(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
	})
}

func TestSevaHandler_PathParams(t *testing.T) {
	callerID := uuid.New()

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockSevaService)
		ctx := asCaller(setupTestContext("GET", "/api/v1/sevas/nope", nil), callerID)
		ctx.SetUserValue("id", "nope")
		NewSevaHandler(svc).GetSeva(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		var res errorResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		assert.Equal(t, errs.KindValidation, res.Kind)
	})

	t.Run("update below booked slots conflicts", func(t *testing.T) {
		id := uuid.New()
		svc := new(MockSevaService)
		svc.On("Update", mock.Anything, callerID, id, mock.Anything).Return(nil, errs.Conflict("total_slots below booked slots"))

		ctx := asCaller(setupTestContext("PUT", "/api/v1/sevas/"+id.String(), []byte(`{"name":"x","total_slots":1}`)), callerID)
		ctx.SetUserValue("id", id.String())
		NewSevaHandler(svc).UpdateSeva(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("delete", func(t *testing.T) {
		id := uuid.New()
		svc := new(MockSevaService)
		svc.On("Delete", mock.Anything, callerID, id).Return(nil)

		ctx := asCaller(setupTestContext("DELETE", "/api/v1/sevas/"+id.String(), nil), callerID)
		ctx.SetUserValue("id", id.String())
		NewSevaHandler(svc).DeleteSeva(ctx)

		assert.Equal(t, 204, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})
}
