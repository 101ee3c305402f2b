package middleware

import (
	"context"

	pkgAuth "github.com/wishwall/wishwall-backend/pkg/auth"
)

// SessionFromContext returns the authenticated session seeded by Auth or OptionalAuth.
func SessionFromContext(ctx context.Context) (pkgAuth.Session, bool) {
	return pkgAuth.SessionFromContext(ctx)
}

// UserIDFromContext returns the caller id as a string, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if sess, ok := pkgAuth.SessionFromContext(ctx); ok {
		return sess.UserID.String()
	}
	return ""
}
