package payloads

import "github.com/google/uuid"

// WishEvent is emitted when a wish is created, updated or deleted.
type WishEvent struct {
	WishID   uuid.UUID `json:"wish_id"`
	UserID   uuid.UUID `json:"user_id"`
	Title    string    `json:"title"`
	IsPublic bool      `json:"is_public"`
}

// LikeEvent is emitted on every like toggle with the committed count.
type LikeEvent struct {
	WishID     uuid.UUID `json:"wish_id"`
	UserID     uuid.UUID `json:"user_id"`
	Liked      bool      `json:"liked"`
	LikesCount int       `json:"likes_count"`
}
