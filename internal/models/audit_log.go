package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records admin-gated mutations (user flag changes, voice edits)
// for after-the-fact review.
type AuditLog struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	ActorID  *string `gorm:"type:uuid;index" json:"actorId"`
	Actor    *User   `gorm:"foreignKey:ActorID" json:"-"`
	Action   string  `gorm:"not null;index" json:"action"`
	Resource string  `gorm:"index" json:"resource"`
	Result   string  `gorm:"not null" json:"result"`

	Metadata datatypes.JSON `json:"metadata"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
