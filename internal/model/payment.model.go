package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/shopspring/decimal"
)

// PaymentHistory is one append-only ledger entry against a donor.
type PaymentHistory struct {
	ID          uuid.UUID       `json:"id"`
	DonorID     uuid.UUID       `json:"donor_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	PaymentDate time.Time       `json:"payment_date"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedBy   uuid.UUID       `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

func (p RecordPaymentRequest) Validate() error {
	if !p.Amount.IsPositive() {
		return errs.Validation("amount must be greater than zero")
	}
	if !IsCents(p.Amount) {
		return errs.Validation("amount must have at most two decimal places")
	}
	if !p.PaymentMode.Valid() {
		return errs.Validation("invalid payment_mode %q", p.PaymentMode)
	}
	return nil
}

// IsCents reports whether v survives a numeric(12,2) column unchanged.
func IsCents(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}

// PaymentResult is what recordPayment hands back to the caller.
type PaymentResult struct {
	Payment *PaymentHistory `json:"payment"`
	Donor   *Donor          `json:"donor"`
	Booked  int64           `json:"booked_slots"`
}
