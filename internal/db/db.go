package db

import (
	"fmt"
	"log/slog"

	"brainshare/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL.
func Open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connection established")
	return gdb, nil
}

// Models lists every table owned by the application, parents first.
func Models() []any {
	return []any{
		&models.User{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.Notification{},
		&models.Report{},
		&models.XPLog{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Companion{},
		&models.UserCompanion{},
	}
}

// Migrate creates or updates the schema.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	slog.Info("database migration completed")
	return nil
}
