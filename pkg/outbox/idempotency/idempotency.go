package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Store is the Redis surface the guard needs.
type Store interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// Manager tracks handled event IDs per worker using Redis SETNX with a TTL.
// Keys follow the `ww:idempotency:evt:handled:<worker>:<event_id>` pattern.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a guard that remembers events for the given TTL.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMark returns true if the event was already handled and otherwise marks it.
func (m *Manager) CheckAndMark(ctx context.Context, worker string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(worker, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release forgets the mark so the event can be handled again.
func (m *Manager) Release(ctx context.Context, worker string, eventID uuid.UUID) error {
	key, err := m.key(worker, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Guard runs fn at most once per event. A failing fn releases the mark so a retry
// can run it again. skipped reports that fn did not run because the event was seen.
func (m *Manager) Guard(ctx context.Context, worker string, eventID uuid.UUID, fn func(context.Context) error) (skipped bool, err error) {
	seen, err := m.CheckAndMark(ctx, worker, eventID)
	if err != nil {
		return false, err
	}
	if seen {
		return true, nil
	}
	if err := fn(ctx); err != nil {
		if relErr := m.Release(ctx, worker, eventID); relErr != nil {
			return false, multierr.Append(err, relErr)
		}
		return false, err
	}
	return false, nil
}

func (m *Manager) key(worker string, eventID uuid.UUID) (string, error) {
	if worker == "" {
		return "", errors.New("worker name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("evt:handled:%s", worker), eventID.String()), nil
}
