package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

var (
	ErrDonorNotFound   = errors.New("donor not found")
	ErrEnrollmentTaken = errors.New("enrollment number already exists")
)

type DonorRepository struct {
	*pg.DB
}

func NewDonorRepository(db *pg.DB) *DonorRepository {
	return &DonorRepository{
		db,
	}
}

func (r *DonorRepository) Create(ctx context.Context, d *model.Donor) (*model.Donor, error) {
	entity := toDonorEntity(d)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, ErrEnrollmentTaken
		}
		return nil, err
	}
	return toDonorModel(entity), nil
}

// Update rewrites everything the enrollment form owns. enrollment_number
// and added_by never change after creation.
func (r *DonorRepository) Update(ctx context.Context, d *model.Donor) (*model.Donor, error) {
	result := r.Write(ctx).
		Model(&DonorEntity{}).
		Where("id = ?", d.ID).
		Updates(map[string]any{
			"seva_id":        d.SevaID,
			"donor_name":     d.DonorName,
			"contact_phone":  d.ContactPhone,
			"contact_email":  d.ContactEmail,
			"payment_mode":   string(d.PaymentMode),
			"total_amount":   d.TotalAmount,
			"paid_amount":    d.PaidAmount,
			"payment_date":   d.PaymentDate,
			"payment_status": string(d.PaymentStatus),
			"is_active":      d.IsActive,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrDonorNotFound
	}
	return r.GetByID(ctx, d.ID)
}

// ApplyPayment stores the running paid amount and the derived status.
func (r *DonorRepository) ApplyPayment(ctx context.Context, id uuid.UUID, paid decimal.Decimal, mode model.PaymentMode, date time.Time, status model.PaymentStatus) error {
	result := r.Write(ctx).
		Model(&DonorEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"paid_amount":    paid,
			"payment_mode":   string(mode),
			"payment_date":   date,
			"payment_status": string(status),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDonorNotFound
	}
	return nil
}

// RepairPaid overwrites paid_amount and status. Only the reconciler uses it.
func (r *DonorRepository) RepairPaid(ctx context.Context, id uuid.UUID, paid decimal.Decimal, status model.PaymentStatus) error {
	return r.Write(ctx).
		Model(&DonorEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"paid_amount":    paid,
			"payment_status": string(status),
		}).Error
}

func (r *DonorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Donor, error) {
	var entity DonorEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	return toDonorModel(&entity), nil
}

// Lock reads the donor with SELECT ... FOR UPDATE.
func (r *DonorRepository) Lock(ctx context.Context, id uuid.UUID) (*model.Donor, error) {
	var entity DonorEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	return toDonorModel(&entity), nil
}

// Delete removes the donor and its payment history.
func (r *DonorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		db := r.Write(ctx)
		if err := db.Where("donor_id = ?", id).Delete(&PaymentHistoryEntity{}).Error; err != nil {
			return err
		}
		result := db.Where("id = ?", id).Delete(&DonorEntity{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDonorNotFound
		}
		return nil
	})
}

func (r *DonorRepository) List(ctx context.Context, f model.DonorFilter) ([]*model.Donor, int64, error) {
	q := r.Read(ctx).Model(&DonorEntity{})

	if f.SevaID != nil {
		q = q.Where("seva_id = ?", *f.SevaID)
	}
	if f.AddedBy != nil {
		q = q.Where("added_by = ?", *f.AddedBy)
	}
	if f.Status != nil {
		q = q.Where("payment_status = ?", string(*f.Status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*DonorEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toDonorModels(entities), total, nil
}

func (r *DonorRepository) ListIDsBySeva(ctx context.Context, sevaID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.Read(ctx).Model(&DonorEntity{}).Where("seva_id = ?", sevaID).Pluck("id", &ids).Error
	return ids, err
}

func (r *DonorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.Read(ctx).Model(&DonorEntity{}).Count(&count).Error
	return count, err
}
