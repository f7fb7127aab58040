package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedbackhub/backend/internal/api/handler"
	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/config"
	"feedbackhub/backend/internal/events"
	"feedbackhub/backend/internal/storage"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL. TranslateError maps unique and FK violations to gorm errors.
	// NowFunc matches the services' clock, which is what postgres timestamptz stores.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis is optional: without it key lookups go to Postgres and events stay in-process.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	}

	log.Println("Database and Redis connections established.")
	return db, rdb
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	log.Printf("Starting feedback service %s (%s)...", cfg.Version, cfg.AppEnv)

	err = sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.AppEnv,
		Release:     cfg.Version,
		Debug:       cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(ctx, cfg)
	s := storage.NewStorageService(db, rdb, storage.WithKeyCacheTTL(cfg.KeyCacheTTL))
	if err := s.Migrate(); err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// 2. Event hub
	var broker storage.EventBroker
	if rdb != nil {
		broker = s
	}
	hub := events.NewHub(broker)
	go hub.Run(ctx)

	// 3. Налаштування Gin та роутингу
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h := handler.NewHandler(s, hub, auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL), handler.Options{
		APIPrefix:           cfg.APIPrefix,
		DashboardOrigins:    cfg.DashboardOrigins,
		IngestRatePerSecond: cfg.IngestRatePerSecond,
		Version:             cfg.Version,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("HTTP server listening on %s%s", cfg.HTTPAddr, cfg.APIPrefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP server shutdown: %v", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("ERROR: Redis close: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Stopped.")
}
