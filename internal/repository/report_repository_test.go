package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepository_Revenue(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewReportRepository(db)
	ctx := context.Background()

	a := seedSeva(t, db, "A", 10)
	b := seedSeva(t, db, "B", 10)
	owner := uuid.New()
	seedDonor(t, db, a.ID, owner, 500, 500)
	seedDonor(t, db, a.ID, owner, 300, 0)
	seedDonor(t, db, b.ID, owner, 200, 200)
	seedDonor(t, db, uuid.New(), owner, 50, 50)

	rows, err := repo.RevenueRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	rep := model.RevenueFromRows(rows)
	assert.True(t, rep.TotalRevenue.Equal(decimal.NewFromInt(750)), rep.TotalRevenue.String())
	assert.Equal(t, int64(4), rep.TotalDonors)

	bySeva := map[string]decimal.Decimal{}
	for _, v := range rep.BySeva {
		bySeva[v.Key] = v.Amount
	}
	assert.True(t, bySeva["A"].Equal(decimal.NewFromInt(500)))
	assert.True(t, bySeva["B"].Equal(decimal.NewFromInt(200)))
	assert.True(t, bySeva[model.UnknownSeva].Equal(decimal.NewFromInt(50)))

	paid, err := repo.PaidRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, paid.Equal(decimal.NewFromInt(750)))
}

func TestReportRepository_UserStats(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewReportRepository(db)
	profiles := NewProfileRepository(db)
	ctx := context.Background()

	active := newProfile("ACTIVE00")
	active.FullName = "Active"
	idle := newProfile("IDLE0000")
	idle.FullName = "Idle"
	for _, p := range []*model.Profile{active, idle} {
		_, err := profiles.CreateIfAbsent(ctx, p)
		require.NoError(t, err)
	}

	s := seedSeva(t, db, "S", 10)
	seedDonor(t, db, s.ID, active.ID, 1000, 400)
	seedDonor(t, db, s.ID, active.ID, 500, 0)

	stats, err := repo.UserStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, active.ID, stats[0].ProfileID)
	assert.Equal(t, int64(2), stats[0].DonorCount)
	assert.True(t, stats[0].TotalAmount.Equal(decimal.NewFromInt(1500)))
	assert.True(t, stats[0].PaidAmount.Equal(decimal.NewFromInt(400)))

	assert.Equal(t, idle.ID, stats[1].ProfileID)
	assert.Equal(t, int64(0), stats[1].DonorCount)
	assert.True(t, stats[1].TotalAmount.IsZero())
}

func TestReportRepository_UserSevaCounts(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewReportRepository(db)
	ctx := context.Background()

	me, someone := uuid.New(), uuid.New()
	s := seedSeva(t, db, "S", 10)
	seedDonor(t, db, s.ID, me, 100, 100)
	seedDonor(t, db, s.ID, me, 100, 10)
	seedDonor(t, db, s.ID, me, 100, 0)
	seedDonor(t, db, s.ID, someone, 100, 100)

	counts, err := repo.UserSevaCounts(ctx, me)
	require.NoError(t, err)
	require.Contains(t, counts, s.ID)
	assert.Equal(t, int64(2), counts[s.ID].Booked)
	assert.Equal(t, int64(1), counts[s.ID].Blocked)

	counts, err = repo.UserSevaCounts(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, counts)
}
