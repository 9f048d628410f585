package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimasrn/seva-booking/internal/config"
	"github.com/nimasrn/seva-booking/internal/queue"
	"github.com/nimasrn/seva-booking/internal/realtime"
	"github.com/nimasrn/seva-booking/pkg/auth"
	"github.com/nimasrn/seva-booking/pkg/prom"
	"github.com/nimasrn/seva-booking/pkg/redis"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.Load(config.ArgValue(os.Args, "env")); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg := config.Get()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET is empty, using an insecure dev secret")
		secret = "dev-secret"
	}
	tokens, err := auth.NewManager(secret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token manager")
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "seva-realtime",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		log.Fatal().Err(err).Msg("Failed to create prometheus metrics")
	}

	changes, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              cfg.ChangesStream,
		ConsumerGroup:     cfg.RealtimeConsumerGroup,
		ConsumerName:      hostname,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		StartID:           "$",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open changes stream")
	}

	hub := realtime.NewHub()
	if err := realtime.NewFanout(hub, changes).Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start fanout")
	}

	origins := config.SplitList(cfg.RealtimeAllowedOrigins)
	router := realtime.SetupRouter(realtime.NewHandler(hub, tokens, origins), origins)

	srv := &http.Server{
		Addr:        cfg.RealtimeListenAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("stream", cfg.ChangesStream).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := changes.Stop(5 * time.Second); err != nil {
		log.Warn().Err(err).Msg("Changes stream did not stop cleanly")
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
