package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/shopspring/decimal"
)

// ReportRepository runs the read-only aggregate queries behind the admin
// reports. Every method reads through the read pool.
type ReportRepository struct {
	*pg.DB
}

func NewReportRepository(db *pg.DB) *ReportRepository {
	return &ReportRepository{
		db,
	}
}

type revenueRowEntity struct {
	SevaName      *string         `gorm:"column:seva_name"`
	PaymentMode   string          `gorm:"column:payment_mode"`
	PaymentStatus string          `gorm:"column:payment_status"`
	PaidAmount    decimal.Decimal `gorm:"column:paid_amount"`
}

// RevenueRows returns one row per donor. Donors whose seva is gone keep a
// nil seva name rather than being dropped by the join.
func (r *ReportRepository) RevenueRows(ctx context.Context) ([]model.RevenueRow, error) {
	var entities []revenueRowEntity
	err := r.Read(ctx).
		Table("donors AS d").
		Select("s.name AS seva_name, d.payment_mode, d.payment_status, d.paid_amount").
		Joins("LEFT JOIN sevas AS s ON s.id = d.seva_id").
		Scan(&entities).Error
	if err != nil {
		return nil, err
	}

	rows := make([]model.RevenueRow, len(entities))
	for i, e := range entities {
		rows[i] = model.RevenueRow{
			SevaName:      e.SevaName,
			PaymentMode:   model.PaymentMode(e.PaymentMode),
			PaymentStatus: model.PaymentStatus(e.PaymentStatus),
			PaidAmount:    e.PaidAmount,
		}
	}
	return rows, nil
}

func (r *ReportRepository) PaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	err := r.Read(ctx).
		Model(&DonorEntity{}).
		Select("COALESCE(SUM(paid_amount), 0) AS total").
		Where("payment_status = ?", string(model.PaymentStatusPaid)).
		Scan(&out).Error
	return out.Total, err
}

type userStatsEntity struct {
	ProfileID   uuid.UUID       `gorm:"column:profile_id"`
	FullName    string          `gorm:"column:full_name"`
	Email       string          `gorm:"column:email"`
	Role        string          `gorm:"column:role"`
	DonorCount  int64           `gorm:"column:donor_count"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount"`
	PaidAmount  decimal.Decimal `gorm:"column:paid_amount"`
}

func (r *ReportRepository) UserStats(ctx context.Context) ([]model.UserStats, error) {
	var entities []userStatsEntity
	err := r.Read(ctx).
		Table("profiles AS p").
		Select(`
            p.id                                 AS profile_id,
            p.full_name                          AS full_name,
            p.email                              AS email,
            p.role                               AS role,
            COUNT(d.id)                          AS donor_count,
            COALESCE(SUM(d.total_amount), 0)     AS total_amount,
            COALESCE(SUM(d.paid_amount), 0)      AS paid_amount
        `).
		Joins("LEFT JOIN donors AS d ON d.added_by = p.id").
		Group("p.id, p.full_name, p.email, p.role").
		Order("p.full_name").
		Scan(&entities).Error
	if err != nil {
		return nil, err
	}

	out := make([]model.UserStats, len(entities))
	for i, e := range entities {
		out[i] = model.UserStats{
			ProfileID:   e.ProfileID,
			FullName:    e.FullName,
			Email:       e.Email,
			Role:        model.Role(e.Role),
			DonorCount:  e.DonorCount,
			TotalAmount: e.TotalAmount,
			PaidAmount:  e.PaidAmount,
		}
	}
	return out, nil
}

// SevaCounts is how many of one profile's donors hold a slot (booked) or
// only a soft block (blocked) on a seva.
type SevaCounts struct {
	SevaID  uuid.UUID `gorm:"column:seva_id"`
	Booked  int64     `gorm:"column:booked"`
	Blocked int64     `gorm:"column:blocked"`
}

func (r *ReportRepository) UserSevaCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]SevaCounts, error) {
	var rows []SevaCounts
	err := r.Read(ctx).
		Model(&DonorEntity{}).
		Select(`
            seva_id,
            SUM(CASE WHEN payment_status IN ? THEN 1 ELSE 0 END) AS booked,
            SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END)  AS blocked
        `, consumingStatuses, string(model.PaymentStatusPending)).
		Where("added_by = ?", userID).
		Group("seva_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]SevaCounts, len(rows))
	for _, c := range rows {
		out[c.SevaID] = c
	}
	return out, nil
}
