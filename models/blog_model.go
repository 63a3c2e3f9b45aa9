package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BlogDraft     = "draft"
	BlogPublished = "published"
	BlogArchived  = "archived"
)

// Blog is a health article written by a doctor. Images and Tags are JSON string lists.
type Blog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"size:500;not null" json:"description"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	Images      datatypes.JSON `json:"images"`
	Tags        datatypes.JSON `json:"tags"`
	Status      string         `gorm:"size:20;not null;default:'published';index" json:"status"`
	Views       int64          `gorm:"not null;default:0" json:"views"`

	Doctor   *User         `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Comments []BlogComment `gorm:"foreignKey:BlogID" json:"comments,omitempty"`

	LikeCount    int64 `gorm:"-" json:"like_count"`
	CommentCount int64 `gorm:"-" json:"comment_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Blog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

type BlogComment struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlogID  uuid.UUID `gorm:"type:uuid;not null;index" json:"blog_id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Content string    `gorm:"size:500;not null" json:"content"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *BlogComment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// BlogLike is one user's like; the primary key keeps it to one per user and blog.
type BlogLike struct {
	BlogID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"blog_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
