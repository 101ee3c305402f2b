// Package realtime delivers row-level wish changes to in-process subscribers.
// Transports (in-memory, Redis pub/sub, Postgres LISTEN/NOTIFY) only differ in how
// changes reach the local broker.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wishwall/wishwall-backend/pkg/enums"
)

// TableWishes is the only table that currently emits changes.
const TableWishes = "wishes"

// Change describes one committed row mutation.
type Change struct {
	Table      string         `json:"table"`
	Op         enums.ChangeOp `json:"op"`
	WishID     uuid.UUID      `json:"wish_id"`
	UserID     uuid.UUID      `json:"user_id"`
	IsPublic   bool           `json:"is_public"`
	WasPublic  bool           `json:"was_public"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Filter narrows which changes a subscriber receives. Zero values match everything.
type Filter struct {
	Table      string
	Events     []enums.ChangeOp
	PublicOnly bool
}

// PublicWishes is the filter used by the public feed.
func PublicWishes() Filter {
	return Filter{Table: TableWishes, PublicOnly: true}
}

// Match reports whether c passes the filter. A change is public when either the
// new or the previous row version was public.
func (f Filter) Match(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if len(f.Events) > 0 {
		found := false
		for _, op := range f.Events {
			if op == c.Op {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PublicOnly && !c.IsPublic && !c.WasPublic {
		return false
	}
	return true
}

// Handler consumes a change. It runs on the subscription goroutine.
type Handler func(ctx context.Context, change Change)

// Unsubscribe tears a subscription down and waits for an in-flight handler to return.
// It is safe to call more than once.
type Unsubscribe func()

// Feed is the subscribe capability consumed by the public feed.
type Feed interface {
	Subscribe(ctx context.Context, filter Filter, handler Handler) (Unsubscribe, error)
}

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Bus is a Feed that services can also publish to.
type Bus interface {
	Feed
	Publisher
	Close() error
}

// Encode renders the wire format shared by the Redis and Postgres transports.
func Encode(c Change) ([]byte, error) {
	return json.Marshal(c)
}

// Decode parses the wire format and validates the operation.
func Decode(payload []byte) (Change, error) {
	var raw struct {
		Table      string    `json:"table"`
		Op         string    `json:"op"`
		WishID     uuid.UUID `json:"wish_id"`
		UserID     uuid.UUID `json:"user_id"`
		IsPublic   bool      `json:"is_public"`
		WasPublic  bool      `json:"was_public"`
		OccurredAt time.Time `json:"occurred_at"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	op, err := enums.ParseChangeOp(raw.Op)
	if err != nil {
		return Change{}, err
	}
	if raw.Table == "" {
		raw.Table = TableWishes
	}
	return Change{
		Table:      raw.Table,
		Op:         op,
		WishID:     raw.WishID,
		UserID:     raw.UserID,
		IsPublic:   raw.IsPublic,
		WasPublic:  raw.WasPublic,
		OccurredAt: raw.OccurredAt,
	}, nil
}
