package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Feedback struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"schedule_id"`
	DoctorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null" json:"patient_id"`
	Rating      int       `gorm:"not null" json:"rating"`
	Comment     string    `gorm:"size:500" json:"comment"`
	IsAnonymous bool      `gorm:"default:false" json:"is_anonymous"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
