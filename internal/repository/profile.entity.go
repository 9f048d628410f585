package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
)

type ProfileEntity struct {
	pg.Model
	FullName     string     `db:"full_name"     gorm:"column:full_name;not null"`
	Email        string     `db:"email"         gorm:"column:email;not null;index"`
	Role         string     `db:"role"          gorm:"column:role;not null;default:user"`
	ReferralCode string     `db:"referral_code" gorm:"column:referral_code;not null;uniqueIndex"`
	ReferredBy   *uuid.UUID `db:"referred_by"   gorm:"column:referred_by;type:uuid"`
}

func (ProfileEntity) TableName() string {
	return "profiles"
}

type ReferralEntity struct {
	pg.Model
	ReferrerID     uuid.UUID `db:"referrer_id"      gorm:"column:referrer_id;type:uuid;not null;index"`
	ReferredUserID uuid.UUID `db:"referred_user_id" gorm:"column:referred_user_id;type:uuid;not null;uniqueIndex"`
}

func (ReferralEntity) TableName() string {
	return "referrals"
}

func toProfileEntity(m *model.Profile) *ProfileEntity {
	if m == nil {
		return nil
	}
	return &ProfileEntity{
		Model:        pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		FullName:     m.FullName,
		Email:        m.Email,
		Role:         string(m.Role),
		ReferralCode: m.ReferralCode,
		ReferredBy:   m.ReferredBy,
	}
}

func toProfileModel(e *ProfileEntity) *model.Profile {
	if e == nil {
		return nil
	}
	return &model.Profile{
		ID:           e.ID,
		FullName:     e.FullName,
		Email:        e.Email,
		Role:         model.Role(e.Role),
		ReferralCode: e.ReferralCode,
		ReferredBy:   e.ReferredBy,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toProfileModels(entities []*ProfileEntity) []*model.Profile {
	if entities == nil {
		return nil
	}
	models := make([]*model.Profile, len(entities))
	for i, e := range entities {
		models[i] = toProfileModel(e)
	}
	return models
}
