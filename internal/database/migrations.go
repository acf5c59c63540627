package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Voice{},
		&models.AuditLog{},
	)
}

// SeedData populates the default voice catalogue. Seeding is idempotent:
// existing rows are left untouched.
func SeedData(db *gorm.DB) error {
	voices := []models.Voice{
		{
			Name:        "aria",
			DisplayName: "Aria",
			Provider:    "elevenlabs",
			IsPublic:    true,
			Metadata:    datatypes.JSON([]byte(`{"language":"en-US","gender":"female"}`)),
		},
		{
			Name:        "atlas",
			DisplayName: "Atlas",
			Provider:    "elevenlabs",
			IsPublic:    true,
			Metadata:    datatypes.JSON([]byte(`{"language":"en-GB","gender":"male"}`)),
		},
		{
			Name:        "nova",
			DisplayName: "Nova",
			Provider:    "openai",
			IsPublic:    false,
			Metadata:    datatypes.JSON([]byte(`{"language":"en-US","gender":"female"}`)),
		},
	}

	for _, voice := range voices {
		if err := db.Where(models.Voice{Name: voice.Name}).Attrs(voice).FirstOrCreate(&models.Voice{}).Error; err != nil {
			return err
		}
	}

	return nil
}
