package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotifyScheduleRegister  = "schedule_register"
	NotifyScheduleCancel    = "schedule_cancel"
	NotifyScheduleReject    = "schedule_reject"
	NotifyScheduleAccept    = "schedule_accept"
	NotifyScheduleCompleted = "schedule_completed"
	NotifyFeedbackReceived  = "feedback_received"
	NotifyBooking           = "booking"
	NotifyCancel            = "cancel"
	NotifyPaymentSuccess    = "payment_success"
	NotifyReminder          = "schedule_reminder"
	NotifyBalanceRecharged  = "balance_recharged"
	NotifyBlogComment       = "blog_comment"
)

type Notification struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         string         `gorm:"size:40;not null" json:"type"`
	Message      string         `gorm:"type:text;not null" json:"message"`
	ScheduleID   *uuid.UUID     `gorm:"type:uuid" json:"schedule_id"`
	CancelReason *string        `gorm:"type:text" json:"cancel_reason"`
	Data         datatypes.JSON `json:"data"`
	Read         bool           `gorm:"default:false;index" json:"read"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
