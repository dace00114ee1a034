package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rolacode/telehealth-platform/cmd/mainconfig"
	"github.com/rolacode/telehealth-platform/internal/api/router"
	"github.com/rolacode/telehealth-platform/internal/app/bootstrap"
	"github.com/rolacode/telehealth-platform/internal/appointments"
	"github.com/rolacode/telehealth-platform/internal/chat"
	appconfig "github.com/rolacode/telehealth-platform/internal/config"
	"github.com/rolacode/telehealth-platform/internal/doctorsearch"
	"github.com/rolacode/telehealth-platform/internal/observability/metrics"
	"github.com/rolacode/telehealth-platform/internal/passwordreset"
	"github.com/rolacode/telehealth-platform/internal/users"
	"github.com/rolacode/telehealth-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Relational storage for accounts and appointments.
	var (
		sqlDB *sql.DB
		pool  *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = sqlDB.Close() }()

		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(registry)

	var chatPool chat.PgxPool
	if pool != nil {
		chatPool = pool
	}
	messageStore, err := bootstrap.BuildMessageStore(cfg, chatPool, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build message store", "error", err)
		os.Exit(1)
	}

	relay := chat.NewRelay(messageStore, chatMetrics, logger, cfg.PersistTimeout)
	chatHandler := chat.NewHandler(relay, messageStore, logger)

	uploader := bootstrap.BuildMediaUploader(cfg, awsCfg, logger)
	emailSender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	var (
		usersHandler        *users.Handler
		searchHandler       *doctorsearch.Handler
		appointmentsHandler *appointments.Handler
		resetHandler        *passwordreset.Handler
	)
	if sqlDB != nil {
		userStore := users.NewStore(sqlDB)
		var imageUploader users.ImageUploader
		if uploader != nil {
			imageUploader = uploader
		}
		usersHandler = users.NewHandler(userStore, imageUploader, cfg.JWTSecret, cfg.TokenTTL, logger)
		searchHandler = doctorsearch.NewHandler(userStore, logger)
		appointmentsHandler = appointments.NewHandler(appointments.NewStore(sqlDB), logger)

		if tokens := passwordreset.NewTokenStore(redisClient, cfg.ResetTokenTTL); tokens != nil {
			resetHandler = passwordreset.NewHandler(userStore, tokens, emailSender, cfg.FrontendBaseURL, logger)
		} else {
			logger.Warn("password reset disabled, redis not configured")
		}
	} else {
		logger.Warn("DATABASE_URL not set, account and appointment endpoints disabled")
	}

	r := router.New(&router.Config{
		Logger:              logger,
		UsersHandler:        usersHandler,
		SearchHandler:       searchHandler,
		AppointmentsHandler: appointmentsHandler,
		ChatHandler:         chatHandler,
		ResetHandler:        resetHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		JWTSecret:           cfg.JWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	// No Read/WriteTimeout: the chat websocket holds its connection open
	// for the life of the session.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
