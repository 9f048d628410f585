package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DonorEntity struct {
	pg.Model
	EnrollmentNumber string          `db:"enrollment_number" gorm:"column:enrollment_number;not null;uniqueIndex"`
	SevaID           uuid.UUID       `db:"seva_id"           gorm:"column:seva_id;type:uuid;not null;index"`
	AddedBy          uuid.UUID       `db:"added_by"          gorm:"column:added_by;type:uuid;not null;index"`
	DonorName        string          `db:"donor_name"        gorm:"column:donor_name;not null"`
	ContactPhone     *string         `db:"contact_phone"     gorm:"column:contact_phone"`
	ContactEmail     *string         `db:"contact_email"     gorm:"column:contact_email"`
	PaymentMode      string          `db:"payment_mode"      gorm:"column:payment_mode;not null"`
	TotalAmount      decimal.Decimal `db:"total_amount"      gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaidAmount       decimal.Decimal `db:"paid_amount"       gorm:"column:paid_amount;type:numeric(12,2);not null"`
	PaymentDate      *time.Time      `db:"payment_date"      gorm:"column:payment_date"`
	PaymentStatus    string          `db:"payment_status"    gorm:"column:payment_status;not null;index"`
	IsActive         bool            `db:"is_active"         gorm:"column:is_active;not null"`
}

func (DonorEntity) TableName() string {
	return "donors"
}

type PaymentHistoryEntity struct {
	ID          uuid.UUID       `db:"id"           gorm:"primaryKey;type:uuid;column:id"`
	DonorID     uuid.UUID       `db:"donor_id"     gorm:"column:donor_id;type:uuid;not null;index"`
	Amount      decimal.Decimal `db:"amount"       gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMode string          `db:"payment_mode" gorm:"column:payment_mode;not null"`
	PaymentDate time.Time       `db:"payment_date" gorm:"column:payment_date;not null"`
	Notes       *string         `db:"notes"        gorm:"column:notes"`
	CreatedBy   uuid.UUID       `db:"created_by"   gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time       `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
}

func (PaymentHistoryEntity) TableName() string {
	return "payment_history"
}

func toDonorEntity(m *model.Donor) *DonorEntity {
	if m == nil {
		return nil
	}
	return &DonorEntity{
		Model:            pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		EnrollmentNumber: m.EnrollmentNumber,
		SevaID:           m.SevaID,
		AddedBy:          m.AddedBy,
		DonorName:        m.DonorName,
		ContactPhone:     m.ContactPhone,
		ContactEmail:     m.ContactEmail,
		PaymentMode:      string(m.PaymentMode),
		TotalAmount:      m.TotalAmount,
		PaidAmount:       m.PaidAmount,
		PaymentDate:      m.PaymentDate,
		PaymentStatus:    string(m.PaymentStatus),
		IsActive:         m.IsActive,
	}
}

func toDonorModel(e *DonorEntity) *model.Donor {
	if e == nil {
		return nil
	}
	return &model.Donor{
		ID:               e.ID,
		EnrollmentNumber: e.EnrollmentNumber,
		SevaID:           e.SevaID,
		AddedBy:          e.AddedBy,
		DonorName:        e.DonorName,
		ContactPhone:     e.ContactPhone,
		ContactEmail:     e.ContactEmail,
		PaymentMode:      model.PaymentMode(e.PaymentMode),
		TotalAmount:      e.TotalAmount,
		PaidAmount:       e.PaidAmount,
		PaymentDate:      e.PaymentDate,
		PaymentStatus:    model.PaymentStatus(e.PaymentStatus),
		IsActive:         e.IsActive,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toDonorModels(entities []*DonorEntity) []*model.Donor {
	if entities == nil {
		return nil
	}
	models := make([]*model.Donor, len(entities))
	for i, e := range entities {
		models[i] = toDonorModel(e)
	}
	return models
}

func toPaymentHistoryEntity(m *model.PaymentHistory) *PaymentHistoryEntity {
	if m == nil {
		return nil
	}
	return &PaymentHistoryEntity{
		ID:          m.ID,
		DonorID:     m.DonorID,
		Amount:      m.Amount,
		PaymentMode: string(m.PaymentMode),
		PaymentDate: m.PaymentDate,
		Notes:       m.Notes,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}

func toPaymentHistoryModel(e *PaymentHistoryEntity) *model.PaymentHistory {
	if e == nil {
		return nil
	}
	return &model.PaymentHistory{
		ID:          e.ID,
		DonorID:     e.DonorID,
		Amount:      e.Amount,
		PaymentMode: model.PaymentMode(e.PaymentMode),
		PaymentDate: e.PaymentDate,
		Notes:       e.Notes,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func toPaymentHistoryModels(entities []*PaymentHistoryEntity) []*model.PaymentHistory {
	if entities == nil {
		return nil
	}
	models := make([]*model.PaymentHistory, len(entities))
	for i, e := range entities {
		models[i] = toPaymentHistoryModel(e)
	}
	return models
}

func (e *PaymentHistoryEntity) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
