package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugh/staff-manager/internal/database/models"
	"github.com/hugh/staff-manager/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	if cfg.Driver == "sqlite" {
		log.Info("connected to database", "driver", cfg.Driver, "path", cfg.Path)
	} else {
		log.Info("connected to database", "driver", cfg.Driver, "host", cfg.Host, "database", cfg.Name)
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.Department{},
		&models.User{},
	)
}

// EnsureRoles inserts the static role rows that are missing.
func EnsureRoles(ctx context.Context, db *gorm.DB) error {
	for _, name := range models.AllRoles {
		role := models.Role{Name: name}
		if err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&role).Error; err != nil {
			return fmt.Errorf("seeding role %s: %w", name, err)
		}
	}
	return nil
}
