// Package feed keeps public wall subscribers in sync by pushing full snapshots
// whenever a public wish changes.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/wishwall/wishwall-backend/internal/wishes"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
	"github.com/wishwall/wishwall-backend/pkg/pagination"
	"github.com/wishwall/wishwall-backend/pkg/realtime"
)

// Snapshot is one full copy of the public feed's first page.
type Snapshot struct {
	Type   string           `json:"type"`
	Wishes []wishes.WishDTO `json:"wishes"`
}

const snapshotType = "snapshot"

// SendFunc delivers a snapshot to one subscriber.
type SendFunc func(ctx context.Context, snap Snapshot) error

// PublicFeed refetches the public listing on every matching change.
type PublicFeed struct {
	changes realtime.Feed
	lister  wishes.Lister
	limit   int
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics
}

// Options configures a PublicFeed.
type Options struct {
	Changes realtime.Feed
	Lister  wishes.Lister
	Limit   int
	Logger  *logger.Logger
	Metrics *metrics.RealtimeMetrics
}

// NewPublicFeed builds the feed watcher.
func NewPublicFeed(opts Options) (*PublicFeed, error) {
	if opts.Changes == nil {
		return nil, fmt.Errorf("change feed is required")
	}
	if opts.Lister == nil {
		return nil, fmt.Errorf("wish lister is required")
	}
	return &PublicFeed{
		changes: opts.Changes,
		lister:  opts.Lister,
		limit:   pagination.NormalizeLimit(opts.Limit),
		logg:    opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Watch sends an initial snapshot and then one per burst of public changes until
// ctx ends or send fails. It returns nil when ctx is cancelled. send is never
// called after Watch returns.
func (f *PublicFeed) Watch(ctx context.Context, send SendFunc) error {
	if send == nil {
		return errors.New("send is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.metrics.SubscriberOpened()
	defer f.metrics.SubscriberClosed()

	// One pending slot: changes during a refetch collapse into one follow-up.
	dirty := make(chan struct{}, 1)
	unsubscribe, err := f.changes.Subscribe(ctx, realtime.PublicWishes(), func(context.Context, realtime.Change) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to wish changes: %w", err)
	}
	defer unsubscribe()

	if err := f.push(ctx, send); err != nil {
		return ignoreCancel(ctx, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dirty:
			if err := f.push(ctx, send); err != nil {
				return ignoreCancel(ctx, err)
			}
		}
	}
}

func (f *PublicFeed) push(ctx context.Context, send SendFunc) error {
	page, err := f.lister.ListPublic(ctx, pagination.Params{Limit: f.limit})
	if err != nil {
		return fmt.Errorf("refetch public wishes: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	items := page.Items
	if items == nil {
		items = []wishes.WishDTO{}
	}
	if err := send(ctx, Snapshot{Type: snapshotType, Wishes: items}); err != nil {
		return err
	}
	f.metrics.SnapshotSent()
	f.logg.Debug(f.logg.WithField(ctx, "wishes", len(items)), "feed.snapshot_sent")
	return nil
}

func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
