// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment win over it.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"library_catalog/pkg/database"
	"library_catalog/pkg/payment"
)

type Config struct {
	HTTPAddr  string
	Database  database.Config
	Payment   payment.ClientConfig
	MaxCharge decimal.Decimal
	SeedData  bool
	LogLevel  slog.Level
}

// Load builds the configuration of a service. defaults supplies the listen
// address and database name, which differ between services.
func Load(defaultAddr, defaultDBName string) Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", defaultAddr),
		Database: database.Config{
			Driver:     getEnv("DB_DRIVER", database.DriverPostgres),
			Host:       getEnv("DB_HOST", "postgres"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "program"),
			Password:   getEnv("DB_PASSWORD", "test"),
			Name:       getEnv("DB_NAME", defaultDBName),
			Path:       getEnv("DB_PATH", defaultDBName+".db"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 10),
			RetryDelay: 5 * time.Second,
		},
		Payment: payment.ClientConfig{
			URL:            getEnv("PAYMENT_SERVICE_URL", "http://localhost:8090"),
			Timeout:        getEnvDuration("PAYMENT_TIMEOUT", 5*time.Second),
			MaxFails:       getEnvInt("PAYMENT_MAX_FAILS", 3),
			BreakerTimeout: getEnvDuration("PAYMENT_BREAKER_TIMEOUT", 30*time.Second),
		},
		MaxCharge: getEnvDecimal("PAYMENT_MAX_CHARGE", decimal.NewFromInt(100)),
		SeedData:  getEnvBool("SEED_DATA", true),
		LogLevel:  parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if d, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
