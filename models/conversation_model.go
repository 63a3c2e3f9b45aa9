package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the single thread between one patient and one doctor.
type Conversation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair" json:"patient_id"`
	DoctorID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair" json:"doctor_id"`
	LastMessageAt *time.Time `json:"last_message_at"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.PatientID == userID {
		return c.DoctorID
	}
	return c.PatientID
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.PatientID == userID || c.DoctorID == userID
}
