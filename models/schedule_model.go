package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ScheduleStatus string

const (
	StatusAvailable ScheduleStatus = "available"
	StatusPending   ScheduleStatus = "pending"
	StatusAccepted  ScheduleStatus = "accepted"
	StatusCompleted ScheduleStatus = "completed"
	StatusCancelled ScheduleStatus = "cancelled"
	StatusRejected  ScheduleStatus = "rejected"
	// StatusBooked is only found in rows written before the pending/accepted split.
	StatusBooked ScheduleStatus = "booked"
)

const (
	AppointmentOnline  = "online"
	AppointmentOffline = "offline"
)

type Schedule struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_schedules_doctor_date,priority:1" json:"doctor_id"`
	Date            datatypes.Date `gorm:"not null;index:idx_schedules_doctor_date,priority:2" json:"date"`
	StartTime       string         `gorm:"size:5;not null" json:"start_time"`
	EndTime         string         `gorm:"size:5;not null" json:"end_time"`
	Status          ScheduleStatus `gorm:"size:20;not null;default:'available';index" json:"status"`
	IsAvailable     bool           `gorm:"not null;default:true" json:"is_available"`
	PatientID       *uuid.UUID     `gorm:"type:uuid;index" json:"patient_id"`
	AppointmentType string         `gorm:"size:10;not null;default:'offline'" json:"appointment_type"`
	MeetingLink     *string        `gorm:"size:500" json:"meeting_link"`
	Notes           *string        `gorm:"type:text" json:"notes"`
	CancelReason    *string        `gorm:"type:text" json:"cancel_reason"`
	RejectedReason  *string        `gorm:"type:text" json:"rejected_reason"`
	RemindedAt      *time.Time     `json:"-"`

	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Day returns the calendar day of the schedule as year/month/day in loc.
func (s *Schedule) Day(loc *time.Location) time.Time {
	y, m, d := time.Time(s.Date).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateOf normalises t to the datatypes.Date used for storage.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
