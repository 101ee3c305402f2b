package wishes

import (
	"time"

	"github.com/google/uuid"

	"github.com/wishwall/wishwall-backend/pkg/db/models"
)

// WishInput is the editable part of a wish. Create and Update share it.
type WishInput struct {
	Title    string  `json:"title" validate:"runemin=3,runemax=120"`
	Content  string  `json:"content" validate:"runemin=10,runemax=300"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,weburl"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

// Author is the profile slice joined onto every listed wish.
type Author struct {
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	City      *string `json:"city,omitempty"`
}

// WishDTO is the API view of a wish.
type WishDTO struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ImageURL   *string   `json:"image_url,omitempty"`
	IsPublic   bool      `json:"is_public"`
	LikesCount int       `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Author     *Author   `json:"author,omitempty"`
}

func FromModel(w *models.Wish) *WishDTO {
	if w == nil {
		return nil
	}
	dto := &WishDTO{
		ID:         w.ID,
		UserID:     w.UserID,
		Title:      w.Title,
		Content:    w.Content,
		ImageURL:   w.ImageURL,
		IsPublic:   w.IsPublic,
		LikesCount: w.LikesCount,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
	if w.Author != nil {
		dto.Author = &Author{
			FullName:  w.Author.FullName,
			AvatarURL: w.Author.AvatarURL,
			City:      w.Author.City,
		}
	}
	return dto
}

func fromModels(rows []models.Wish) []WishDTO {
	out := make([]WishDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
