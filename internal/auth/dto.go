package auth

import (
	"github.com/google/uuid"

	"github.com/wishwall/wishwall-backend/internal/profiles"
	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
	"github.com/wishwall/wishwall-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the payload required to create an account.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"min=6"`
	FullName string  `json:"full_name" validate:"runemin=2,runemax=100"`
	City     *string `json:"city,omitempty" validate:"omitempty,runemax=100"`
}

// RefreshRequest carries the refresh token issued alongside the access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionView is the client-facing slice of a Session.
type SessionView struct {
	UserID  uuid.UUID  `json:"user_id"`
	Role    enums.Role `json:"role"`
	IsAdmin bool       `json:"is_admin"`
}

// LoginResponse contains the tokens, session, and profile produced by a successful login.
type LoginResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	Session      SessionView          `json:"session"`
	Profile      *profiles.ProfileDTO `json:"profile"`
}

// TokenPair is returned by refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// MeResponse describes the signed-in caller.
type MeResponse struct {
	Session SessionView          `json:"session"`
	Email   string               `json:"email"`
	Profile *profiles.ProfileDTO `json:"profile"`
}

func viewOf(sess pkgAuth.Session) SessionView {
	return SessionView{UserID: sess.UserID, Role: sess.Role, IsAdmin: sess.IsAdmin()}
}
