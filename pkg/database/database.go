package database

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"library_catalog/pkg/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	Path       string
	MaxRetries int
	RetryDelay time.Duration
}

func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

// LibraryModels are the tables owned by the library service.
func LibraryModels() []any {
	return []any{&models.Book{}, &models.BorrowRecord{}}
}

// PaymentModels are the tables owned by the payment processor.
func PaymentModels() []any {
	return []any{&models.Payment{}}
}

// Open connects with retries, tunes the pool and migrates the given models.
func Open(lg *slog.Logger, cfg Config, tables ...any) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	lg.Info("connecting to database", "driver", cfg.Driver, "host", cfg.Host, "port", cfg.Port, "name", cfg.Name)

	attempts := max(cfg.MaxRetries, 1)
	var db *gorm.DB
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err == nil {
			break
		}
		lg.Warn("database connection attempt failed", "attempt", i+1, "of", attempts, "err", err)
		if i < attempts-1 {
			time.Sleep(cfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// one connection: an in-memory database lives and dies with it
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.AutoMigrate(tables...); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	lg.Info("database connection established")
	return db, nil
}

// OpenSQLite opens a migrated sqlite database. Tests pass ":memory:".
func OpenSQLite(path string, tables ...any) (*gorm.DB, error) {
	return Open(slog.New(slog.DiscardHandler), Config{Driver: DriverSQLite, Path: path, MaxRetries: 1}, tables...)
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return postgres.Open(cfg.DSN()), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, errors.New("sqlite driver requires DB_PATH")
		}
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Ping reports whether the database behind db answers.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
