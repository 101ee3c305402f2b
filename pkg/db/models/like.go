package models

import (
	"time"

	"github.com/google/uuid"
)

// Like links a user to a wish they endorsed. The pair is the primary key.
type Like struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	WishID    uuid.UUID `gorm:"column:wish_id;type:uuid;primaryKey;index:likes_wish_id_idx"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Like) TableName() string { return "likes" }
