package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfile(code string) *model.Profile {
	return &model.Profile{
		ID:           uuid.New(),
		FullName:     "Asha",
		Email:        "asha-" + code + "@example.com",
		Role:         model.RoleUser,
		ReferralCode: code,
	}
}

func TestProfileRepository_CreateIfAbsent(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewProfileRepository(db)
	ctx := context.Background()

	p := newProfile("ABCDEFGH")

	created, err := repo.CreateIfAbsent(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	t.Run("same id is a no-op", func(t *testing.T) {
		again := *p
		again.FullName = "Changed"
		again.ReferralCode = "ZZZZZZZZ"
		created, err := repo.CreateIfAbsent(ctx, &again)
		require.NoError(t, err)
		assert.False(t, created)

		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha", got.FullName)
		assert.Equal(t, "ABCDEFGH", got.ReferralCode)
	})

	t.Run("referral code collision", func(t *testing.T) {
		_, err := repo.CreateIfAbsent(ctx, newProfile("ABCDEFGH"))
		assert.ErrorIs(t, err, ErrReferralCodeTaken)
	})
}

func TestProfileRepository_Lookups(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewProfileRepository(db)
	ctx := context.Background()

	p := newProfile("LOOKUP11")
	_, err := repo.CreateIfAbsent(ctx, p)
	require.NoError(t, err)

	got, err := repo.GetByEmail(ctx, "ASHA-LOOKUP11@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	got, err = repo.GetByReferralCode(ctx, "LOOKUP11")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileRepository_RoleAndReferrals(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewProfileRepository(db)
	referrals := NewReferralRepository(db)
	ctx := context.Background()

	referrer := newProfile("REFERRER")
	referred := newProfile("REFERRED")
	third := newProfile("THIRD000")
	for _, p := range []*model.Profile{referrer, referred, third} {
		_, err := repo.CreateIfAbsent(ctx, p)
		require.NoError(t, err)
	}

	set, err := repo.SetReferredBy(ctx, referred.ID, referrer.ID)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = repo.SetReferredBy(ctx, referred.ID, third.ID)
	require.NoError(t, err)
	assert.False(t, set)

	created, err := referrals.Create(ctx, referrer.ID, referred.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = referrals.Create(ctx, third.ID, referred.ID)
	require.NoError(t, err)
	assert.False(t, created)

	n, err := referrals.CountByReferrer(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = referrals.CountByReferrer(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	list, err := repo.ListReferredBy(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, referred.ID, list[0].ID)

	require.NoError(t, repo.SetRole(ctx, third.ID, model.RoleAdmin))
	admins, err := repo.CountByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)
	users, err := repo.CountByRole(ctx, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, int64(2), users)

	assert.ErrorIs(t, repo.SetRole(ctx, uuid.New(), model.RoleAdmin), ErrProfileNotFound)
}
