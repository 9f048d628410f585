package fixtures

import (
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/shopspring/decimal"
)

var (
	AdminEmail = "admin@temple.example"
	UserEmail  = "volunteer@temple.example"
)

func NewEnsureProfileRequest(userID uuid.UUID, email, referralCode string) model.EnsureProfileRequest {
	return model.EnsureProfileRequest{
		UserID:       userID,
		Email:        email,
		ReferralCode: referralCode,
	}
}

func NewSevaRequest(name string, slots int64, amounts ...int64) model.SevaRequest {
	opts := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		opts[i] = decimal.NewFromInt(a)
	}
	return model.SevaRequest{
		Name:          name,
		Description:   name + " seva",
		TotalSlots:    slots,
		AmountOptions: opts,
	}
}

func NewDonorRequest(sevaID uuid.UUID, name string, total, paid int64) model.DonorUpsertRequest {
	p := decimal.NewFromInt(paid)
	return model.DonorUpsertRequest{
		SevaID:      sevaID,
		DonorName:   name,
		PaymentMode: model.PaymentModeCash,
		TotalAmount: decimal.NewFromInt(total),
		PaidAmount:  &p,
	}
}

func NewPaymentRequest(amount int64, mode model.PaymentMode) model.RecordPaymentRequest {
	return model.RecordPaymentRequest{
		Amount:      decimal.NewFromInt(amount),
		PaymentMode: mode,
	}
}
