package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ChannelEmail    = "email"
	ChannelPush     = "push"
	ChannelRealtime = "realtime"
)

const (
	DispatchPending = "pending"
	DispatchSending = "sending"
	DispatchSent    = "sent"
	DispatchFailed  = "failed"
)

// DispatchJob is one outbound side effect written alongside the state change that caused it.
type DispatchJob struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Channel      string         `gorm:"size:20;not null" json:"channel"`
	RecipientID  uuid.UUID      `gorm:"type:uuid;not null" json:"recipient_id"`
	Subject      string         `gorm:"size:255" json:"subject"`
	Body         string         `gorm:"type:text" json:"body"`
	Payload      datatypes.JSON `json:"payload"`
	Status       string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Attempts     int            `gorm:"not null;default:0" json:"attempts"`
	LastError    *string        `gorm:"type:text" json:"last_error"`
	DispatchedAt *time.Time     `json:"dispatched_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *DispatchJob) BeforeCreate(tx *gorm.DB) error {
	ensureID(&j.ID)
	return nil
}
