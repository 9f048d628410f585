package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	TableProfiles       = "profiles"
	TableSevas          = "sevas"
	TableDonors         = "donors"
	TablePaymentHistory = "payment_history"
	TableReferrals      = "referrals"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ChangeEvent is published on the changes stream after a write commits.
// Consumers re-read the row rather than trusting the payload.
type ChangeEvent struct {
	Table  string     `json:"table"`
	Event  ChangeKind `json:"event"`
	ID     uuid.UUID  `json:"id"`
	SevaID *uuid.UUID `json:"seva_id,omitempty"`
	At     time.Time  `json:"at"`
}

// Matches reports whether the event passes a table and seva filter.
// Empty filters match everything.
func (e ChangeEvent) Matches(table string, sevaID *uuid.UUID) bool {
	if table != "" && table != "*" && table != e.Table {
		return false
	}
	if sevaID != nil {
		if e.SevaID == nil || *e.SevaID != *sevaID {
			return false
		}
	}
	return true
}
