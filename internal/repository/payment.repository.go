package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/shopspring/decimal"
)

// PaymentRepository owns the append-only payment ledger. There is no update
// or delete path; rows go away only with their donor.
type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.PaymentHistory) (*model.PaymentHistory, error) {
	entity := toPaymentHistoryEntity(p)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toPaymentHistoryModel(entity), nil
}

func (r *PaymentRepository) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*model.PaymentHistory, error) {
	var entities []*PaymentHistoryEntity
	err := r.Read(ctx).
		Where("donor_id = ?", donorID).
		Order("payment_date DESC").
		Order("created_at DESC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toPaymentHistoryModels(entities), nil
}

type ledgerTotal struct {
	Total   decimal.Decimal `gorm:"column:total"`
	Entries int64           `gorm:"column:entries"`
}

// LedgerSum returns the sum of a donor's payments and how many there are.
func (r *PaymentRepository) LedgerSum(ctx context.Context, donorID uuid.UUID) (decimal.Decimal, int64, error) {
	var out ledgerTotal
	err := r.Read(ctx).
		Model(&PaymentHistoryEntity{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS entries").
		Where("donor_id = ?", donorID).
		Scan(&out).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return out.Total, out.Entries, nil
}
