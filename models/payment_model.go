package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentPending   = "PENDING"
	PaymentPaid      = "PAID"
	PaymentCancelled = "CANCELLED"
	PaymentExpired   = "EXPIRED"
	PaymentFailed    = "FAILED"
)

type PackagePayment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID        uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	OrderCode       int64     `gorm:"not null;uniqueIndex" json:"order_code"`
	Amount          int64     `gorm:"not null" json:"amount"`
	Description     string    `gorm:"size:255" json:"description"`
	PackageType     string    `gorm:"size:20;not null" json:"package_type"`
	PackageDuration int       `gorm:"not null" json:"package_duration"`
	Status          string    `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	PaymentURL      *string   `gorm:"size:500" json:"payment_url,omitempty"`
	TransactionID   *string   `gorm:"size:255" json:"transaction_id,omitempty"`

	PaidAt        *time.Time `json:"paid_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
	CancelReason  *string    `gorm:"type:text" json:"cancel_reason"`
	ExpiredAt     *time.Time `json:"expired_at"`
	FailedAt      *time.Time `json:"failed_at"`
	FailureReason *string    `gorm:"type:text" json:"failure_reason"`

	Doctor *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *PackagePayment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// BalanceRecharge is a wallet top-up paid through the same gateway as packages. Order
// codes are unique across both tables so one webhook endpoint can route either.
type BalanceRecharge struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	OrderCode     int64     `gorm:"not null;uniqueIndex" json:"order_code"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Description   string    `gorm:"size:255" json:"description"`
	Status        string    `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	PaymentURL    *string   `gorm:"size:500" json:"payment_url,omitempty"`
	TransactionID *string   `gorm:"size:255" json:"transaction_id,omitempty"`

	PaidAt        *time.Time `json:"paid_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
	CancelReason  *string    `gorm:"type:text" json:"cancel_reason"`
	ExpiredAt     *time.Time `json:"expired_at"`
	FailedAt      *time.Time `json:"failed_at"`
	FailureReason *string    `gorm:"type:text" json:"failure_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *BalanceRecharge) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
