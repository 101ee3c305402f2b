package likes

import "github.com/google/uuid"

// ToggleResult carries the committed like state for one wish.
type ToggleResult struct {
	WishID     uuid.UUID `json:"wish_id"`
	Liked      bool      `json:"liked"`
	LikesCount int       `json:"likes_count"`
}

// LikedIDs lists the wishes the caller has liked.
type LikedIDs struct {
	WishIDs []uuid.UUID `json:"wish_ids"`
}
