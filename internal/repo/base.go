// Package repo holds helpers shared by the wish and like repositories.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wishwall/wishwall-backend/pkg/pagination"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// ForUpdate returns a query that row-locks what it selects. SQLite has no
// SELECT ... FOR UPDATE and serializes writers itself, so the clause is only
// added on Postgres.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	q := b.DB(ctx)
	if q.Dialector != nil && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return q
}

// NewestFirst orders q by created_at desc then id desc and applies the keyset
// cursor, if any. table qualifies the columns.
func NewestFirst(q *gorm.DB, table string, cursor *pagination.Cursor) *gorm.DB {
	createdAt := table + ".created_at"
	id := table + ".id"
	if cursor != nil {
		q = q.Where(
			"("+createdAt+" < ?) OR ("+createdAt+" = ? AND "+id+" < ?)",
			cursor.CreatedAt.UTC(), cursor.CreatedAt.UTC(), cursor.ID,
		)
	}
	return q.Order(createdAt + " DESC").Order(id + " DESC")
}

// CursorOf builds the keyset cursor for a row.
func CursorOf(createdAt time.Time, id uuid.UUID) pagination.Cursor {
	return pagination.Cursor{CreatedAt: createdAt.UTC(), ID: id}
}
