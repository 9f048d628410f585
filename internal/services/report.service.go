package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/shopspring/decimal"
)

type ReportRepository interface {
	RevenueRows(ctx context.Context) ([]model.RevenueRow, error)
	PaidRevenue(ctx context.Context) (decimal.Decimal, error)
	UserStats(ctx context.Context) ([]model.UserStats, error)
}

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type RoleCounter interface {
	CountByRole(ctx context.Context, role model.Role) (int64, error)
}

type ReportService struct {
	reports  ReportRepository
	sevas    Counter
	donors   Counter
	users    RoleCounter
	profiles ProfileReader
}

func NewReportService(reports ReportRepository, sevas, donors Counter, users RoleCounter, profiles ProfileReader) *ReportService {
	return &ReportService{
		reports:  reports,
		sevas:    sevas,
		donors:   donors,
		users:    users,
		profiles: profiles,
	}
}

func (s *ReportService) authorize(ctx context.Context, callerID uuid.UUID) error {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return err
	}
	return requireCapability(caller, model.CapViewAllDonors)
}

func (s *ReportService) Revenue(ctx context.Context, callerID uuid.UUID) (*model.RevenueReport, error) {
	if err := s.authorize(ctx, callerID); err != nil {
		return nil, err
	}
	rows, err := s.reports.RevenueRows(ctx)
	if err != nil {
		return nil, errs.Store(err, "load revenue rows")
	}
	rep := model.RevenueFromRows(rows)
	return &rep, nil
}

func (s *ReportService) Dashboard(ctx context.Context, callerID uuid.UUID) (*model.DashboardStats, error) {
	if err := s.authorize(ctx, callerID); err != nil {
		return nil, err
	}

	var (
		out model.DashboardStats
		err error
	)
	if out.TotalSevas, err = s.sevas.Count(ctx); err != nil {
		return nil, errs.Store(err, "count sevas")
	}
	if out.TotalUsers, err = s.users.CountByRole(ctx, model.RoleUser); err != nil {
		return nil, errs.Store(err, "count users")
	}
	if out.TotalDonors, err = s.donors.Count(ctx); err != nil {
		return nil, errs.Store(err, "count donors")
	}
	if out.TotalRevenue, err = s.reports.PaidRevenue(ctx); err != nil {
		return nil, errs.Store(err, "sum revenue")
	}
	return &out, nil
}

func (s *ReportService) Users(ctx context.Context, callerID uuid.UUID) ([]model.UserStats, error) {
	if err := s.authorize(ctx, callerID); err != nil {
		return nil, err
	}
	list, err := s.reports.UserStats(ctx)
	if err != nil {
		return nil, errs.Store(err, "load user stats")
	}
	return list, nil
}
