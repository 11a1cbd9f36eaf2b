package db

import (
	"tokenwatch/internal/models"
)

func AutoMigrate(db *DB) error {
	return db.Gorm.AutoMigrate(
		&models.AlertRecord{},
		&models.RoundRecord{},
	)
}
