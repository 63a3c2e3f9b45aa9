package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is an Expo push token registered by a mobile client.
type Device struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token    string    `gorm:"size:255;not null;unique" json:"token"`
	Platform string    `gorm:"size:20" json:"platform"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
