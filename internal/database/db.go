package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"castenobar/internal/config"
	"castenobar/internal/models"
)

// Connect opens postgres with unique-violation translation enabled, so the
// store can report conflicts through gorm.ErrDuplicatedKey.
func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Info("connected to postgres",
		zap.String("host", cfg.DBHost),
		zap.String("db", cfg.DBName),
	)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Identity{}, &models.Profile{}, &models.Settings{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
