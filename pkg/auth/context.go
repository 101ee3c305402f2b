package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wishwall/wishwall-backend/pkg/enums"
)

// Session is the authenticated caller for one request. It is created from a
// verified access token whose access id still has a live refresh mapping.
type Session struct {
	UserID    uuid.UUID
	Role      enums.Role
	AccessID  string
	ExpiresAt time.Time
}

// IsAdmin reports whether the session may moderate.
func (s Session) IsAdmin() bool {
	return s.Role.IsAdmin()
}

// Owns reports whether the session belongs to userID.
func (s Session) Owns(userID uuid.UUID) bool {
	return s.UserID != uuid.Nil && s.UserID == userID
}

// SessionFromClaims builds a Session from parsed claims.
func SessionFromClaims(c *AccessTokenClaims) Session {
	if c == nil {
		return Session{}
	}
	sess := Session{
		UserID:   c.UserID,
		Role:     c.Role,
		AccessID: c.ID,
	}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess
}

type sessionKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request session, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	sess, ok := ctx.Value(sessionKey{}).(Session)
	if !ok || sess.UserID == uuid.Nil {
		return Session{}, false
	}
	return sess, true
}
