package repository

import (
	"testing"

	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

// Entities lists every table for AutoMigrate in tests. Production schemas
// come from the goose migrations.
func Entities() []any {
	return []any{&ProfileEntity{}, &ReferralEntity{}, &SevaEntity{}, &DonorEntity{}, &PaymentHistoryEntity{}}
}

// NewTestDB opens a private in-memory sqlite database with every table
// migrated. The pool is pinned to one connection because each sqlite
// connection to :memory: sees its own database.
func NewTestDB(t testing.TB) *pg.DB {
	return setupTestDB(t).DB
}

func setupTestDB(t testing.TB) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), pg.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(Entities()...)
	require.NoError(t, err)

	return &testDB{
		DB:    pg.New(db, db),
		rawDB: db,
	}
}
