package cron

import (
	"context"
	"fmt"

	"github.com/wishwall/wishwall-backend/pkg/logger"
)

type likesReconciler interface {
	Reconcile(ctx context.Context) (int64, error)
}

// LikesReconcileJob recomputes wishes.likes_count from the likes table so writes
// that bypassed the toggle cannot leave the counter wrong.
type LikesReconcileJob struct {
	logg *logger.Logger
	repo likesReconciler
}

func NewLikesReconcileJob(repo likesReconciler, logg *logger.Logger) (*LikesReconcileJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("likes repository required")
	}
	return &LikesReconcileJob{logg: logg, repo: repo}, nil
}

func (j *LikesReconcileJob) Name() string { return "likes_reconcile" }

func (j *LikesReconcileJob) Run(ctx context.Context) error {
	fixed, err := j.repo.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile likes_count: %w", err)
	}
	ctx = j.logg.WithField(ctx, "wishes_fixed", fixed)
	if fixed > 0 {
		j.logg.Warn(ctx, "cron.likes_count_drift")
		return nil
	}
	j.logg.Info(ctx, "cron.likes_reconcile")
	return nil
}
