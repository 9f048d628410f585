package repository

import (
	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
)

type SevaEntity struct {
	pg.Model
	Name          string     `db:"name"           gorm:"column:name;not null"`
	Description   string     `db:"description"    gorm:"column:description;not null;default:''"`
	TotalSlots    int64      `db:"total_slots"    gorm:"column:total_slots;not null"`
	BookedSlots   int64      `db:"booked_slots"   gorm:"column:booked_slots;not null;default:0"`
	CreatedBy     uuid.UUID  `db:"created_by"     gorm:"column:created_by;type:uuid;not null"`
	IsActive      bool       `db:"is_active"      gorm:"column:is_active;not null"`
	AmountOptions amountList `db:"amount_options" gorm:"column:amount_options"`
}

func (SevaEntity) TableName() string {
	return "sevas"
}

func toSevaEntity(m *model.Seva) *SevaEntity {
	if m == nil {
		return nil
	}
	return &SevaEntity{
		Model:         pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Name:          m.Name,
		Description:   m.Description,
		TotalSlots:    m.TotalSlots,
		BookedSlots:   m.BookedSlots,
		CreatedBy:     m.CreatedBy,
		IsActive:      m.IsActive,
		AmountOptions: toAmountList(m.AmountOptions),
	}
}

func toSevaModel(e *SevaEntity) *model.Seva {
	if e == nil {
		return nil
	}
	return &model.Seva{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		TotalSlots:    e.TotalSlots,
		BookedSlots:   e.BookedSlots,
		CreatedBy:     e.CreatedBy,
		IsActive:      e.IsActive,
		AmountOptions: fromAmountList(e.AmountOptions),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toSevaModels(entities []*SevaEntity) []*model.Seva {
	if entities == nil {
		return nil
	}
	models := make([]*model.Seva, len(entities))
	for i, e := range entities {
		models[i] = toSevaModel(e)
	}
	return models
}
