package db

import (
	"cmp"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/gatehouse/internal/config"
	"github.com/nebari-dev/gatehouse/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool sizes used when the postgres settings are left at zero
const (
	defaultMaxIdleConns    = 4
	defaultMaxOpenConns    = 16
	defaultConnMaxLifetime = 30 * time.Minute
)

// New opens the registry database. driver is "sqlite" or "postgres".
func New(driver string, cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN + "?_journal_mode=WAL&_busy_timeout=5000")
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing %s connection pool: %w", driver, err)
	}

	// sqlite allows a single writer
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		return gdb, nil
	}

	idle := cmp.Or(max(cfg.MaxIdleConns, 0), defaultMaxIdleConns)
	open := cmp.Or(max(cfg.MaxOpenConns, 0), defaultMaxOpenConns)
	lifetime := defaultConnMaxLifetime
	if cfg.ConnMaxLifetime > 0 {
		lifetime = time.Duration(cfg.ConnMaxLifetime) * time.Minute
	}
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetMaxOpenConns(open)
	sqlDB.SetConnMaxLifetime(lifetime)

	slog.Debug("Opened postgres registry database",
		"max_idle_conns", idle,
		"max_open_conns", open,
		"conn_max_lifetime", lifetime)
	return gdb, nil
}

// Migrate creates or updates the stored_resources table
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.StoredResource{}); err != nil {
		return fmt.Errorf("migrating stored_resources: %w", err)
	}
	return nil
}
