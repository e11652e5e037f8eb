package migration

import (
	"log"

	"github.com/kestrelfm/spindle/pkg/database/models"
	"gorm.io/gorm"
)

// RunMigration creates the uuid extension and auto-migrates the telemetry
// schema. This is the only migration path the engine needs: there is no
// prior deployed schema to evolve, so a single AutoMigrate call is enough.
func RunMigration(db *gorm.DB) error {
	log.Println("Starting migrations...")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Fatalf("Failed to create uuid-ossp extension: %v", err)
	}

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&models.PlaybackError{},
		&models.PlaybackMetric{},
		&models.PlaybackLog{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Migrations completed successfully!")
	return nil
}
