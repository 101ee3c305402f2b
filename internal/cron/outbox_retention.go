package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/wishwall/wishwall-backend/pkg/logger"
)

const defaultOutboxRetentionDays = 14

type publishedPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRetentionJob deletes outbox rows that were published more than the
// retention window ago. Unpublished rows are never touched.
type OutboxRetentionJob struct {
	logg      *logger.Logger
	repo      publishedPurger
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetentionJob(repo publishedPurger, retentionDays int, logg *logger.Logger) (*OutboxRetentionJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if retentionDays <= 0 {
		retentionDays = defaultOutboxRetentionDays
	}
	return &OutboxRetentionJob{
		logg:      logg,
		repo:      repo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

func (j *OutboxRetentionJob) Name() string { return "outbox_retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge published outbox rows: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "cron.outbox_retention")
	return nil
}
