package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/valyala/fasthttp"
)

type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) EnsureProfile(ctx context.Context, callerID uuid.UUID, req model.EnsureProfileRequest) (*model.Profile, error) {
	args := m.Called(ctx, callerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileService) Me(ctx context.Context, callerID uuid.UUID) (*model.Me, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Me), args.Error(1)
}

func (m *MockProfileService) Referred(ctx context.Context, callerID uuid.UUID) ([]*model.Profile, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Profile), args.Error(1)
}

func (m *MockProfileService) SetAdmin(ctx context.Context, callerID uuid.UUID, req model.SetAdminRequest) (*model.Profile, error) {
	args := m.Called(ctx, callerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

type MockSevaService struct {
	mock.Mock
}

func (m *MockSevaService) Create(ctx context.Context, callerID uuid.UUID, req model.SevaRequest) (*model.Seva, error) {
	args := m.Called(ctx, callerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Seva), args.Error(1)
}

func (m *MockSevaService) Update(ctx context.Context, callerID, id uuid.UUID, req model.SevaRequest) (*model.Seva, error) {
	args := m.Called(ctx, callerID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Seva), args.Error(1)
}

func (m *MockSevaService) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	return m.Called(ctx, callerID, id).Error(0)
}

func (m *MockSevaService) Get(ctx context.Context, callerID, id uuid.UUID) (*model.Seva, error) {
	args := m.Called(ctx, callerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Seva), args.Error(1)
}

func (m *MockSevaService) List(ctx context.Context, callerID uuid.UUID) ([]*model.Seva, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Seva), args.Error(1)
}

func (m *MockSevaService) ListForUser(ctx context.Context, callerID uuid.UUID) ([]model.UserSevaStats, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserSevaStats), args.Error(1)
}

type MockDonorService struct {
	mock.Mock
}

func (m *MockDonorService) Upsert(ctx context.Context, callerID uuid.UUID, req model.DonorUpsertRequest) (*model.Donor, error) {
	args := m.Called(ctx, callerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donor), args.Error(1)
}

func (m *MockDonorService) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	return m.Called(ctx, callerID, id).Error(0)
}

func (m *MockDonorService) Get(ctx context.Context, callerID, id uuid.UUID) (*model.Donor, error) {
	args := m.Called(ctx, callerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Donor), args.Error(1)
}

func (m *MockDonorService) List(ctx context.Context, callerID uuid.UUID, f model.DonorFilter) ([]*model.Donor, int64, error) {
	args := m.Called(ctx, callerID, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Donor), args.Get(1).(int64), args.Error(2)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, callerID, donorID uuid.UUID, req model.RecordPaymentRequest) (*model.PaymentResult, error) {
	args := m.Called(ctx, callerID, donorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentResult), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, callerID, donorID uuid.UUID) ([]*model.PaymentHistory, error) {
	args := m.Called(ctx, callerID, donorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PaymentHistory), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Revenue(ctx context.Context, callerID uuid.UUID) (*model.RevenueReport, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RevenueReport), args.Error(1)
}

func (m *MockReportService) Dashboard(ctx context.Context, callerID uuid.UUID) (*model.DashboardStats, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DashboardStats), args.Error(1)
}

func (m *MockReportService) Users(ctx context.Context, callerID uuid.UUID) ([]model.UserStats, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserStats), args.Error(1)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) Check(ctx context.Context) map[string]error {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]error)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

// asCaller stands in for Authenticator.Secure.
func asCaller(ctx *xhttp.RequestCtx, id uuid.UUID) *xhttp.RequestCtx {
	ctx.SetUserValue(userIDKey, id)
	return ctx
}
