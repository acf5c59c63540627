package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultKeyRateLimit is the advisory per-key request budget assigned at
// creation. It is surfaced and mutable but not enforced by the server core.
const DefaultKeyRateLimit = 60

// APIKey stores a long-lived secret's hash together with its authorization
// state. The raw secret is never persisted; only its one-way hash is, and the
// hash column is unique so an incoming key can be matched by hashing alone.
type APIKey struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	Label   string `gorm:"not null" json:"label"`
	KeyHash string `gorm:"uniqueIndex;not null" json:"keyHash"`

	// UserID is the owning tenant. It is immutable after creation; every
	// read, mutation and delete must filter by it alongside the key id.
	UserID string `gorm:"type:uuid;index;not null" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`

	IsActive  bool    `gorm:"default:true" json:"isActive"`
	RateLimit int     `gorm:"default:60" json:"rateLimit"`
	Credits   float64 `gorm:"type:decimal(20,8);default:0" json:"credits"`

	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	ExpiresAt  *time.Time `json:"expiresAt"`

	// KeyPreview is derived for display and never persisted. At creation it
	// is the raw secret's suffix; on listings it is the hash's suffix.
	KeyPreview string `gorm:"-" json:"keyPreview"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
