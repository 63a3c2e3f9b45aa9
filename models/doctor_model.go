package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

const (
	PackageFree    = "free"
	PackageSilver  = "silver"
	PackageGold    = "gold"
	PackageDiamond = "diamond"
)

// ScheduleLimits is the weekly quota window. Only services.QuotaService writes it.
type ScheduleLimits struct {
	Weekly    int        `gorm:"not null;default:5" json:"weekly"`
	Used      int        `gorm:"not null;default:0" json:"used"`
	ResetDate *time.Time `json:"reset_date"`
}

type Doctor struct {
	UserID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	DoctorType        string         `gorm:"size:30;not null;default:'general'" json:"doctor_type"`
	Workplace         *string        `gorm:"size:255" json:"workplace"`
	Description       *string        `gorm:"type:text" json:"description"`
	Certifications    datatypes.JSON `json:"certifications"`
	Education         datatypes.JSON `json:"education"`
	WorkExperience    datatypes.JSON `json:"work_experience"`
	ApplicationStatus string         `gorm:"size:20;not null;default:'pending';index" json:"application_status"`
	RejectionMessage  *string        `gorm:"type:text" json:"rejection_message"`

	SubscriptionPackage   string     `gorm:"size:20;not null;default:'free'" json:"subscription_package"`
	SubscriptionStartDate *time.Time `json:"subscription_start_date"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date"`
	IsPriority            bool       `gorm:"default:false" json:"is_priority"`
	AvgRating             float32    `gorm:"default:0" json:"avg_rating"`

	ScheduleLimits ScheduleLimits `gorm:"embedded;embeddedPrefix:schedule_limits_" json:"schedule_limits"`

	User      User      `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// HasActiveSubscription reports whether a paid package is still running at now.
func (d *Doctor) HasActiveSubscription(now time.Time) bool {
	return d.SubscriptionEndDate != nil && d.SubscriptionEndDate.After(now)
}
