package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) CreateIfAbsent(ctx context.Context, p *model.Profile) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByReferralCode(ctx context.Context, code string) (*model.Profile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) SetReferredBy(ctx context.Context, id, referrerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, referrerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepository) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockProfileRepository) ListReferredBy(ctx context.Context, referrerID uuid.UUID) ([]*model.Profile, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Profile), args.Error(1)
}

type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) Create(ctx context.Context, referrerID, referredID uuid.UUID) (bool, error) {
	args := m.Called(ctx, referrerID, referredID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) CountByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, referrerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, events ...model.ChangeEvent) {
	m.Called(ctx, events)
}

type MockChangeQueue struct {
	mock.Mock
}

func (m *MockChangeQueue) PublishChange(ctx context.Context, ev model.ChangeEvent) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
