package database

import (
	"fmt"

	"github.com/pathwise/pathwise-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Migrate is split out so the sqlite test helper can reuse the same table set.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Resume{},
		&models.CareerGoal{},
		&models.ActivityEvent{},
		&models.UsageCounter{},
		&models.IntelligenceReport{},
		&models.SalarySnapshot{},
	)
}
