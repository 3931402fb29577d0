package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type Config struct {
	Driver string // postgres | sqlite

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	PostgresSSLMode  string

	SQLitePath string

	MaxOpenConns int
	LogSQL       bool
}

func (c Config) postgresDSN() string {
	ssl := c.PostgresSSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresName, ssl)
}

// Open connects to the configured database. sqlite is the local default.
func Open(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	dbLog := log.With("service", "Database")
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}
	if cfg.LogSQL {
		gcfg.Logger = gormLogger.Default.LogMode(gormLogger.Info)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "postgresql", "pg":
		dbLog.Info("Connecting to Postgres...", "host", cfg.PostgresHost, "name", cfg.PostgresName)
		dialector = postgres.Open(cfg.postgresDSN())
	case "", "sqlite", "sqlite3":
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = "merch.db"
		}
		dbLog.Info("Opening sqlite...", "path", path)
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		dbLog.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	}
	return gdb, nil
}

func AutoMigrateAll(log *logger.Logger, gdb *gorm.DB) error {
	log.Info("Auto migrating tables...")
	if err := gdb.AutoMigrate(types.Models()...); err != nil {
		log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
