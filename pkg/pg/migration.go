package pg

import (
	_ "github.com/lib/pq"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir.
func Migrate(cfg Config, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set goose dialect")
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return errors.Wrap(err, "open migration connection")
	}
	defer db.Close()

	before, err := goose.GetDBVersion(db)
	if err != nil {
		logger.Warn("migration: could not read current version", "error", err)
	}
	if err = goose.Up(db, dir); err != nil {
		return errors.Wrapf(err, "apply migrations from %s", dir)
	}
	after, _ := goose.GetDBVersion(db)
	logger.Info("migration: done", "from", before, "to", after, "dir", dir)

	return nil
}
