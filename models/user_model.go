package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser   = "user"
	RoleDoctor = "doctor"
	RoleAdmin  = "admin"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	Email     string    `gorm:"size:255;not null;unique" json:"email"`
	Phone     *string   `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"size:20;not null;default:'user'" json:"role"`
	AvatarURL *string   `gorm:"size:255" json:"avatar_url"`
	Address   *string   `gorm:"size:255" json:"address"`
	// Balance is the wallet in VND, credited only by paid recharges.
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	IsDeleted bool      `gorm:"default:false;index" json:"-"`

	IsVerified               bool       `gorm:"default:false" json:"is_verified"`
	EmailVerificationCode    *string    `gorm:"size:6" json:"-"`
	EmailVerificationExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
