package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Voice is a speech-generation voice asset managed by administrators.
// Metadata carries provider-specific attributes (language, sample URLs,
// style tags) as a schemaless JSON document.
type Voice struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"displayName"`
	Provider    string `gorm:"index" json:"provider"`
	IsPublic    bool   `gorm:"default:false" json:"isPublic"`

	Metadata datatypes.JSON `json:"metadata"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (v *Voice) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
