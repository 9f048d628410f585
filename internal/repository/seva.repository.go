package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"gorm.io/gorm/clause"
)

var (
	ErrSevaNotFound     = errors.New("seva not found")
	ErrSevaInactive     = errors.New("seva is not active")
	ErrSlotsExhausted   = errors.New("no slots left for seva")
	ErrSlotsBelowBooked = errors.New("total slots below booked slots")
)

// consumingStatuses are the donor statuses counted in booked_slots.
var consumingStatuses = []string{string(model.PaymentStatusPaid), string(model.PaymentStatusPartial)}

type SevaRepository struct {
	*pg.DB
}

func NewSevaRepository(db *pg.DB) *SevaRepository {
	return &SevaRepository{
		db,
	}
}

func (r *SevaRepository) Create(ctx context.Context, s *model.Seva) (*model.Seva, error) {
	entity := toSevaEntity(s)
	entity.BookedSlots = 0

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toSevaModel(entity), nil
}

// Update rewrites the editable columns. booked_slots is never written here;
// lowering total_slots below it fails with ErrSlotsBelowBooked.
func (r *SevaRepository) Update(ctx context.Context, s *model.Seva) (*model.Seva, error) {
	var out *model.Seva
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := r.Lock(ctx, s.ID)
		if err != nil {
			return err
		}
		if s.TotalSlots < current.BookedSlots {
			return ErrSlotsBelowBooked
		}

		err = r.Write(ctx).
			Model(&SevaEntity{}).
			Where("id = ?", s.ID).
			Updates(map[string]any{
				"name":           s.Name,
				"description":    s.Description,
				"total_slots":    s.TotalSlots,
				"is_active":      s.IsActive,
				"amount_options": toAmountList(s.AmountOptions),
			}).Error
		if err != nil {
			return err
		}

		out, err = r.GetByID(ctx, s.ID)
		return err
	})
	return out, err
}

func (r *SevaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Seva, error) {
	var entity SevaEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrSevaNotFound
		}
		return nil, err
	}
	return toSevaModel(&entity), nil
}

// Lock reads the seva with SELECT ... FOR UPDATE. It must run inside
// WithinTransaction for the lock to outlive the statement.
func (r *SevaRepository) Lock(ctx context.Context, id uuid.UUID) (*model.Seva, error) {
	var entity SevaEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrSevaNotFound
		}
		return nil, err
	}
	return toSevaModel(&entity), nil
}

func (r *SevaRepository) List(ctx context.Context, activeOnly bool) ([]*model.Seva, error) {
	q := r.Read(ctx).Model(&SevaEntity{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var entities []*SevaEntity
	if err := q.Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toSevaModels(entities), nil
}

func (r *SevaRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.Read(ctx).Model(&SevaEntity{}).Order("created_at").Pluck("id", &ids).Error
	return ids, err
}

func (r *SevaRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.Read(ctx).Model(&SevaEntity{}).Count(&count).Error
	return count, err
}

// Delete removes the seva together with its donors and their payment history.
func (r *SevaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		db := r.Write(ctx)
		donors := db.Model(&DonorEntity{}).Select("id").Where("seva_id = ?", id)
		if err := db.Where("donor_id IN (?)", donors).Delete(&PaymentHistoryEntity{}).Error; err != nil {
			return err
		}
		if err := db.Where("seva_id = ?", id).Delete(&DonorEntity{}).Error; err != nil {
			return err
		}
		result := db.Where("id = ?", id).Delete(&SevaEntity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSevaNotFound
		}
		return nil
	})
}

// ReserveSlot locks the seva and checks that donorID may start consuming a
// slot. The donor itself is left out of the count, so re-saving a donor
// that already holds a slot never fails.
func (r *SevaRepository) ReserveSlot(ctx context.Context, sevaID, donorID uuid.UUID) error {
	seva, err := r.Lock(ctx, sevaID)
	if err != nil {
		return err
	}

	used, err := r.countConsuming(ctx, sevaID, donorID)
	if err != nil {
		return err
	}
	if used+1 > seva.TotalSlots {
		return ErrSlotsExhausted
	}
	return nil
}

// RecomputeBookedSlots stores the number of slot consuming donors as the
// seva's booked_slots and returns it. A count above total_slots is not
// stored; ErrSlotsExhausted is returned with the count instead.
func (r *SevaRepository) RecomputeBookedSlots(ctx context.Context, sevaID uuid.UUID) (int64, error) {
	seva, err := r.Lock(ctx, sevaID)
	if err != nil {
		return 0, err
	}

	used, err := r.countConsuming(ctx, sevaID, uuid.Nil)
	if err != nil {
		return 0, err
	}
	if used > seva.TotalSlots {
		return used, ErrSlotsExhausted
	}
	if used == seva.BookedSlots {
		return used, nil
	}

	err = r.Write(ctx).
		Model(&SevaEntity{}).
		Where("id = ?", sevaID).
		Update("booked_slots", used).Error
	return used, err
}

func (r *SevaRepository) countConsuming(ctx context.Context, sevaID, exclude uuid.UUID) (int64, error) {
	q := r.Write(ctx).
		Model(&DonorEntity{}).
		Where("seva_id = ? AND payment_status IN ?", sevaID, consumingStatuses)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}
