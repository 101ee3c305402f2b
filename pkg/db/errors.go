package db

import (
	"strings"

	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure. When
// constraintName is set, the constraint must match as well.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.Postgres(err); pg != nil {
		return pg.Code == pgUniqueViolation &&
			(constraintName == "" || pg.Constraint == constraintName)
	}

	// sqlite reports "UNIQUE constraint failed: table.column" without the
	// index name.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return true
	case constraintName != "":
		return strings.Contains(msg, constraintName)
	default:
		return strings.Contains(msg, "duplicate key value")
	}
}
