package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/models"
)

func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
			cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode, cfg.TimeZone)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == "sqlite" {
		// A single writer avoids SQLITE_BUSY under concurrent dispatch.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	// Local sqlite databases have no collector creating these tables.
	if cfg.Type == "sqlite" {
		if err := AutoMigrateReporting(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// AutoMigrate creates or updates the tables this service writes to.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ContentRecord{},
		&models.PublishLogEntry{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// AutoMigrateReporting creates the collector-owned tables read by reporting.
func AutoMigrateReporting(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.PipelineLogEntry{},
		&models.CollectedNews{},
		&models.Newsletter{},
	); err != nil {
		return fmt.Errorf("failed to migrate reporting tables: %w", err)
	}
	return nil
}
