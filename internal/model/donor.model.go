package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from paid and total amounts, never set by clients.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

var PaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "Cash"
	PaymentModeOnline PaymentMode = "Online"
	PaymentModeCheque PaymentMode = "Cheque"
	PaymentModeUPI    PaymentMode = "UPI"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeOnline, PaymentModeCheque, PaymentModeUPI:
		return true
	}
	return false
}

// DeriveStatus classifies a donor's payment progress.
func DeriveStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case !paid.IsPositive():
		return PaymentStatusPending
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}

// ConsumesSlot reports whether a donor in status s occupies one slot of its seva.
// Pending donors only hold a soft block.
func ConsumesSlot(s PaymentStatus) bool {
	return s == PaymentStatusPaid || s == PaymentStatusPartial
}

type Donor struct {
	ID               uuid.UUID       `json:"id"`
	EnrollmentNumber string          `json:"enrollment_number"`
	SevaID           uuid.UUID       `json:"seva_id"`
	AddedBy          uuid.UUID       `json:"added_by"`
	DonorName        string          `json:"donor_name"`
	ContactPhone     *string         `json:"contact_phone,omitempty"`
	ContactEmail     *string         `json:"contact_email,omitempty"`
	PaymentMode      PaymentMode     `json:"payment_mode"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	PaymentDate      *time.Time      `json:"payment_date,omitempty"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (d *Donor) Remaining() decimal.Decimal {
	r := d.TotalAmount.Sub(d.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// DonorUpsertRequest is the enrollment form. A nil ID creates a new donor.
type DonorUpsertRequest struct {
	ID           *uuid.UUID       `json:"id,omitempty"`
	SevaID       uuid.UUID        `json:"seva_id"`
	DonorName    string           `json:"donor_name"`
	ContactPhone *string          `json:"contact_phone,omitempty"`
	ContactEmail *string          `json:"contact_email,omitempty"`
	PaymentMode  PaymentMode      `json:"payment_mode"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	PaidAmount   *decimal.Decimal `json:"paid_amount,omitempty"`
	PaymentDate  *time.Time       `json:"payment_date,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
}

func (p *DonorUpsertRequest) Validate() error {
	p.DonorName = strings.TrimSpace(p.DonorName)
	if p.SevaID == uuid.Nil {
		return errs.Validation("seva_id is required")
	}
	if p.DonorName == "" {
		return errs.Validation("donor_name is required")
	}
	if !p.TotalAmount.IsPositive() {
		return errs.Validation("total_amount must be greater than zero")
	}
	paid := p.Paid()
	if !IsCents(p.TotalAmount) || !IsCents(paid) {
		return errs.Validation("amounts must have at most two decimal places")
	}
	if paid.IsNegative() {
		return errs.Validation("paid_amount must not be negative")
	}
	if paid.GreaterThan(p.TotalAmount) {
		return errs.Validation("paid_amount must not exceed total_amount")
	}
	if !p.PaymentMode.Valid() {
		return errs.Validation("invalid payment_mode %q", p.PaymentMode)
	}
	return nil
}

func (p *DonorUpsertRequest) Paid() decimal.Decimal {
	if p.PaidAmount == nil {
		return decimal.Zero
	}
	return *p.PaidAmount
}

// DonorFilter controls List queries.
type DonorFilter struct {
	SevaID  *uuid.UUID
	AddedBy *uuid.UUID
	Status  *PaymentStatus
	Limit   int // default 50
	Offset  int
}
