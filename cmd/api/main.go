package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimasrn/seva-booking/internal/config"
	"github.com/nimasrn/seva-booking/internal/handlers"
	"github.com/nimasrn/seva-booking/internal/queue"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/internal/services"
	"github.com/nimasrn/seva-booking/pkg/auth"
	xhttp "github.com/nimasrn/seva-booking/pkg/http"
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
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.CORSMiddleware(config.SplitList(cfg.HttpAllowedOrigins)))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

	db, err := pg.CreateReadWrite(cfg.ReadPostgres(), cfg.WritePostgres(), cfg.IsDev())
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "seva-api",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	// publish only, the api never consumes
	changes, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:   cfg.ChangesStream,
		MaxLen: cfg.QueueMaxLen,
	})
	if err != nil {
		logger.Error("failed creating changes stream", "error", err)
		return
	}

	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET is empty, using an insecure dev secret")
		secret = "dev-secret"
	}
	tokens, err := auth.NewManager(secret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("failed creating token manager", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.MetricsListenAddr, "/metrics")

	profileRepo := repository.NewProfileRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	sevaRepo := repository.NewSevaRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// services
	notifier := services.NewChangePublisher(changes)
	profileService := services.NewProfileService(profileRepo, referralRepo, notifier)
	sevaService := services.NewSevaService(sevaRepo, reportRepo, profileRepo, notifier)
	donorService := services.NewDonorService(donorRepo, sevaRepo, paymentRepo, profileRepo, notifier)
	paymentService := services.NewPaymentService(donorRepo, sevaRepo, paymentRepo, profileRepo, notifier)
	reportService := services.NewReportService(reportRepo, sevaRepo, donorRepo, profileRepo, profileRepo)
	healthService := services.NewHealthService(map[string]services.Pinger{
		"postgres": db,
		"redis":    redisAdap,
	})

	// v1 handlers
	authenticator := handlers.NewAuthenticator(tokens)
	g := s.Router.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))
	handlers.RegisterProfileRoutes(g, authenticator, handlers.NewProfileHandler(profileService))
	handlers.RegisterSevaRoutes(g, authenticator, handlers.NewSevaHandler(sevaService))
	handlers.RegisterDonorRoutes(g, authenticator, handlers.NewDonorHandler(donorService, paymentService))
	handlers.RegisterReportRoutes(g, authenticator, handlers.NewReportHandler(reportService))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
	if err := changes.Stop(5 * time.Second); err != nil {
		logger.Warn("changes stream did not stop cleanly", "error", err)
	}
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
