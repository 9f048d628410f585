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
	ErrProfileNotFound   = errors.New("profile not found")
	ErrReferralCodeTaken = errors.New("referral code already exists")
)

type ProfileRepository struct {
	*pg.DB
}

func NewProfileRepository(db *pg.DB) *ProfileRepository {
	return &ProfileRepository{
		db,
	}
}

// CreateIfAbsent inserts the profile unless one with the same id exists.
// It reports whether this call created the row.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *model.Profile) (bool, error) {
	entity := toProfileEntity(p)

	result := r.Write(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(entity)
	if result.Error != nil {
		if pg.IsUniqueViolation(result.Error) {
			return false, ErrReferralCodeTaken
		}
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *ProfileRepository) GetByReferralCode(ctx context.Context, code string) (*model.Profile, error) {
	return r.first(ctx, "referral_code = ?", code)
}

func (r *ProfileRepository) first(ctx context.Context, query string, args ...any) (*model.Profile, error) {
	var entity ProfileEntity
	err := r.Read(ctx).Where(query, args...).Order("created_at").First(&entity).Error
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return toProfileModel(&entity), nil
}

// SetReferredBy records the referrer once. A profile that already has one
// is left alone and false is returned.
func (r *ProfileRepository) SetReferredBy(ctx context.Context, id, referrerID uuid.UUID) (bool, error) {
	result := r.Write(ctx).
		Model(&ProfileEntity{}).
		Where("id = ? AND referred_by IS NULL", id).
		Update("referred_by", referrerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ProfileRepository) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	result := r.Write(ctx).
		Model(&ProfileEntity{}).
		Where("id = ?", id).
		Update("role", string(role))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) ListReferredBy(ctx context.Context, referrerID uuid.UUID) ([]*model.Profile, error) {
	var entities []*ProfileEntity
	err := r.Read(ctx).
		Where("referred_by = ?", referrerID).
		Order("created_at DESC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toProfileModels(entities), nil
}

func (r *ProfileRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var count int64
	err := r.Read(ctx).Model(&ProfileEntity{}).Where("role = ?", string(role)).Count(&count).Error
	return count, err
}
