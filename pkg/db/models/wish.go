package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wish is a user authored post. LikesCount mirrors the number of likes rows.
type Wish struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:wishes_user_id_idx"`
	Title      string    `gorm:"column:title;not null"`
	Content    string    `gorm:"column:content;not null"`
	ImageURL   *string   `gorm:"column:image_url"`
	IsPublic   bool      `gorm:"column:is_public;not null"`
	LikesCount int       `gorm:"column:likes_count;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index:wishes_created_at_idx"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Author *Profile `gorm:"foreignKey:UserID;references:ID"`
}

func (Wish) TableName() string { return "wishes" }

func (w *Wish) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
