package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/nimasrn/seva-booking/internal/config"
	"github.com/nimasrn/seva-booking/internal/processor"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/pg"
	"github.com/nimasrn/seva-booking/pkg/prom"
	"github.com/nimasrn/seva-booking/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting reconciler", "version", version, "commit", commit, "date", date)

	db, err := pg.CreateReadWrite(cfg.ReadPostgres(), cfg.WritePostgres(), cfg.IsDev())
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "seva-processor",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	sevaRepo := repository.NewSevaRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	idempotencyService := processor.NewIdempotencyService(redisAdap, processor.DefaultIdempotencyConfig())
	reconciler := processor.NewReconcileProcessor(sevaRepo, donorRepo, paymentRepo, idempotencyService)

	service := processor.NewProcessorService(redisAdap, cfg)
	service.RegisterProcessor(reconciler)
	service.RegisterSweeper(reconciler)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(cfg.MetricsListenAddr, "/metrics")
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		service.Stop()
		return
	}

	<-c
	service.Stop()
}

func argContainsEnvPath() string {
	path := config.ArgValue(os.Args, "env")
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		logger.Error("failed to open the passed env file, got error " + err.Error())
		return ""
	}
	return path
}
