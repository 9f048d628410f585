package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Capability string

const (
	CapViewAllDonors       Capability = "view-all-donors"
	CapManageSevas         Capability = "manage-sevas"
	CapManageOwnDonorsOnly Capability = "manage-own-donors-only"
)

// Capabilities maps a role to what it may do. Unknown roles get the user set.
func Capabilities(r Role) []Capability {
	if r == RoleAdmin {
		return []Capability{CapViewAllDonors, CapManageSevas}
	}
	return []Capability{CapManageOwnDonorsOnly}
}

func HasCapability(r Role, c Capability) bool {
	for _, v := range Capabilities(r) {
		if v == c {
			return true
		}
	}
	return false
}

type Profile struct {
	ID           uuid.UUID  `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	ReferralCode string     `json:"referral_code"`
	ReferredBy   *uuid.UUID `json:"referred_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

type EnsureProfileRequest struct {
	UserID       uuid.UUID `json:"userId"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Role         Role      `json:"role"`
	ReferralCode string    `json:"referralCode"`
}

func (p *EnsureProfileRequest) Validate() error {
	p.Email = strings.TrimSpace(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)
	p.ReferralCode = strings.ToUpper(strings.TrimSpace(p.ReferralCode))
	if p.UserID == uuid.Nil {
		return errs.Validation("userId is required")
	}
	if p.Email == "" {
		return errs.Validation("email is required")
	}
	return nil
}

// DisplayName falls back to the local part of the email, then to "User".
func (p *EnsureProfileRequest) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	if local, _, ok := strings.Cut(p.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

type SetAdminRequest struct {
	Email string `json:"email"`
}

func (p *SetAdminRequest) Validate() error {
	p.Email = strings.TrimSpace(p.Email)
	if p.Email == "" {
		return errs.Validation("email is required")
	}
	return nil
}

// Me is the GET /me payload.
type Me struct {
	Profile       *Profile     `json:"profile"`
	Capabilities  []Capability `json:"capabilities"`
	ReferralCount int64        `json:"referral_count"`
}
