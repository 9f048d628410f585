package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/shopspring/decimal"
)

type Seva struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	TotalSlots    int64             `json:"total_slots"`
	BookedSlots   int64             `json:"booked_slots"`
	CreatedBy     uuid.UUID         `json:"created_by"`
	IsActive      bool              `json:"is_active"`
	AmountOptions []decimal.Decimal `json:"amount_options"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (s *Seva) RemainingSlots() int64 {
	if s.BookedSlots >= s.TotalSlots {
		return 0
	}
	return s.TotalSlots - s.BookedSlots
}

// SevaRequest creates or updates a seva. booked_slots is derived and
// deliberately absent.
type SevaRequest struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	TotalSlots    int64             `json:"total_slots"`
	IsActive      *bool             `json:"is_active,omitempty"`
	AmountOptions []decimal.Decimal `json:"amount_options"`
}

func (p *SevaRequest) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errs.Validation("name is required")
	}
	if p.TotalSlots <= 0 {
		return errs.Validation("total_slots must be greater than zero")
	}
	for _, a := range p.AmountOptions {
		if !a.IsPositive() {
			return errs.Validation("amount_options must be positive")
		}
		if !IsCents(a) {
			return errs.Validation("amount_options must have at most two decimal places")
		}
	}
	return nil
}

// UserSevaStats is one active seva as seen by a single profile.
type UserSevaStats struct {
	Seva           *Seva `json:"seva"`
	RemainingSlots int64 `json:"remaining_slots"`
	BookedByMe     int64 `json:"booked_by_me"`
	BlockedByMe    int64 `json:"blocked_by_me"`
}
