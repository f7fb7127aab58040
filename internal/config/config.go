// Package config loads runtime settings from the environment and holds the
// domain constants shared by the services.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv  string
	Debug   bool
	Version string

	HTTPAddr  string
	APIPrefix string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyCacheTTL   time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	SentryDSN string

	// DashboardOrigins are allowed to call the operator API from a browser.
	DashboardOrigins []string
	// IngestRatePerSecond throttles public submissions per application. Zero disables it.
	IngestRatePerSecond int
}

// LoadConfig loads configuration from environment variables.
// A .env file is read first when present; variables already set in the
// environment take precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on environment variables")
	}

	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("KEY_CACHE_TTL", DefaultKeyCacheTTL.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid KEY_CACHE_TTL: %w", err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("OPERATOR_TOKEN_TTL", DefaultTokenTTL.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid OPERATOR_TOKEN_TTL: %w", err)
	}

	rate, err := strconv.Atoi(getEnv("INGEST_RATE_PER_SECOND", "20"))
	if err != nil || rate < 0 {
		return nil, fmt.Errorf("invalid INGEST_RATE_PER_SECOND: %q", os.Getenv("INGEST_RATE_PER_SECOND"))
	}

	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Debug:               debug,
		Version:             getEnv("VERSION", "dev"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		APIPrefix:           strings.TrimRight(getEnv("API_PREFIX", "/api/v1"), "/"),
		DatabaseURL:         getEnv("DATABASE_URL", postgresDSNFromParts()),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             redisDB,
		KeyCacheTTL:         cacheTTL,
		JWTSecret:           getEnv("OPERATOR_JWT_SECRET", ""),
		TokenTTL:            tokenTTL,
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		DashboardOrigins:    splitList(getEnv("DASHBOARD_ORIGINS", "")),
		IngestRatePerSecond: rate,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or DB_HOST/DB_USER/DB_NAME is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("OPERATOR_JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Println("WARNING: OPERATOR_JWT_SECRET is shorter than 32 bytes")
	}
	if cfg.RedisAddr == "" {
		log.Println("WARNING: REDIS_ADDR is not set. API key cache and cross-instance events disabled.")
	}
	if cfg.SentryDSN == "" {
		log.Println("WARNING: SENTRY_DSN is not set. Error tracking disabled.")
	}

	return cfg, nil
}

// postgresDSNFromParts builds a DSN from the DB_* variables used by the
// docker-compose setup. It returns "" when DB_HOST is unset.
func postgresDSNFromParts() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host,
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "feedback"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
