package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/wishwall/wishwall-backend/pkg/db/models"
)

// ProfileDTO is the public view of a profile.
type ProfileDTO struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	City      *string   `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateProfileInput is the editable subset of a profile.
type UpdateProfileInput struct {
	FullName  string  `json:"full_name" validate:"runemin=4,runemax=100"`
	City      *string `json:"city,omitempty" validate:"omitempty,runemax=100"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,weburl"`
}

func FromModel(p *models.Profile) *ProfileDTO {
	if p == nil {
		return nil
	}
	return &ProfileDTO{
		ID:        p.ID,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		City:      p.City,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
