package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"gorm.io/gorm/clause"
)

type ReferralRepository struct {
	*pg.DB
}

func NewReferralRepository(db *pg.DB) *ReferralRepository {
	return &ReferralRepository{
		db,
	}
}

// Create inserts the edge referrer -> referred and reports whether it was
// new. A referred user keeps the first referrer it was given.
func (r *ReferralRepository) Create(ctx context.Context, referrerID, referredID uuid.UUID) (bool, error) {
	entity := &ReferralEntity{ReferrerID: referrerID, ReferredUserID: referredID}
	result := r.Write(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "referred_user_id"}}, DoNothing: true}).
		Create(entity)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ReferralRepository) CountByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error) {
	var count int64
	err := r.Read(ctx).Model(&ReferralEntity{}).Where("referrer_id = ?", referrerID).Count(&count).Error
	return count, err
}
