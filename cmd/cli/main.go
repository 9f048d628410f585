package main

import (
	"context"
	"os"

	"github.com/nimasrn/seva-booking/internal/config"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/internal/services"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/pg"
)

// main.go --dir=./migrations
// main.go --promote=someone@example.com
func main() {
	defer logger.Sync()

	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

	if email := config.ArgValue(os.Args, "promote"); email != "" {
		promote(cfg, email)
		return
	}

	err = pg.Migrate(cfg.WritePostgres(), getMigrationPath())
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
	}
}

// promote bootstraps the first admin; later elevations go through
// POST /admin/set-admin.
func promote(cfg *config.Config, email string) {
	db, err := pg.CreateReadWrite(cfg.WritePostgres(), cfg.WritePostgres(), false)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	profiles := services.NewProfileService(repository.NewProfileRepository(db), repository.NewReferralRepository(db), nil)
	p, err := profiles.PromoteByEmail(context.Background(), email)
	if err != nil {
		logger.Error("promote: failed", "email", email, "error", err)
		return
	}
	logger.Info("promote: done", "email", p.Email, "id", p.ID)
}

func getEnvPath() string {
	if path := config.ArgValue(os.Args, "env"); path != "" {
		if _, err := os.Stat(path); err != nil {
			logger.Error("failed to open the passed env file, got error " + err.Error())
			return ""
		}
		return path
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	if path := config.ArgValue(os.Args, "dir"); path != "" {
		return path
	}
	return "./migrations"
}
