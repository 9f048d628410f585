package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seedSeva(t *testing.T, db *pg.DB, name string, slots int64) *model.Seva {
	t.Helper()
	s, err := NewSevaRepository(db).Create(context.Background(), &model.Seva{
		Name:       name,
		TotalSlots: slots,
		CreatedBy:  uuid.New(),
		IsActive:   true,
		AmountOptions: []decimal.Decimal{
			decimal.NewFromInt(500),
			decimal.NewFromInt(1000),
		},
	})
	require.NoError(t, err)
	return s
}

func seedDonor(t *testing.T, db *pg.DB, sevaID, addedBy uuid.UUID, total, paid int64) *model.Donor {
	t.Helper()
	p := decimal.NewFromInt(paid)
	tt := decimal.NewFromInt(total)
	d, err := NewDonorRepository(db).Create(context.Background(), &model.Donor{
		EnrollmentNumber: "ENR-" + uuid.NewString()[:8],
		SevaID:           sevaID,
		AddedBy:          addedBy,
		DonorName:        "donor",
		PaymentMode:      model.PaymentModeCash,
		TotalAmount:      tt,
		PaidAmount:       p,
		PaymentStatus:    model.DeriveStatus(p, tt),
		IsActive:         true,
	})
	require.NoError(t, err)
	return d
}
