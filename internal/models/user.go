package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the authoritative directory row for a platform account. Identity
// claims from the external provider (email, name, avatar) are advisory
// bootstrap values; authorization flags live here and only here.
type User struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`

	IsAdmin           bool `gorm:"default:false" json:"isAdmin"`
	PermissionGranted bool `gorm:"default:false" json:"permissionGranted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
