package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/wishwall/wishwall-backend/pkg/config"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
	"github.com/wishwall/wishwall-backend/pkg/outbox/registry"
)

const (
	workerName            = "outbox-publisher"
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type pinger interface {
	Ping(context.Context) error
}

type pubSubClient interface {
	pinger
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	MarkTerminal(ctx context.Context, id uuid.UUID, maxAttempts int, err error) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// publishGuard remembers event ids that already reached Pub/Sub so a row
// whose MarkPublished failed is not sent twice.
type publishGuard interface {
	Guard(ctx context.Context, worker string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               pinger
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	Guard            publishGuard
	Metrics          *metrics.OutboxMetrics
	PublisherFactory publisherFactory
}

func (p ServiceParams) validate() error {
	missing := func(name string) error { return fmt.Errorf("outbox publisher: %s is required", name) }
	switch {
	case p.Config == nil:
		return missing("config")
	case p.Logger == nil:
		return missing("logger")
	case p.DB == nil:
		return missing("database client")
	case p.PubSub == nil:
		return missing("pubsub client")
	case p.Repository == nil:
		return missing("outbox repository")
	case p.Registry == nil:
		return missing("event registry")
	}
	return nil
}

// Service drains outbox_events into Pub/Sub.
type Service struct {
	logg         *logger.Logger
	db           pinger
	pubsub       pubSubClient
	repo         outboxRepository
	registry     registryResolver
	guard        publishGuard
	metrics      *metrics.OutboxMetrics
	publishers   publisherFactory
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}
	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		registry:     params.Registry,
		guard:        params.Guard,
		metrics:      params.Metrics,
		publishers:   factory,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: positiveDurationOr(time.Duration(cfg.PollIntervalMS)*time.Millisecond, defaultPollInterval),
	}, nil
}

func (s *Service) ready(ctx context.Context) error {
	for name, dep := range map[string]pinger{"database": s.db, "pubsub": s.pubsub} {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping: %w", name, err)
		}
	}
	return nil
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// straight away by the next one; a failed batch backs off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	var backoff time.Duration
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = withJitter(backoff)
		case processed >= s.batchSize:
			backoff = 0
			continue
		default:
			backoff = 0
			wait = withJitter(s.pollInterval)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// batchStats tallies outcomes for the per-batch summary log.
type batchStats map[outcome]int

// processBatch handles one batch and reports how many rows it fetched.
// Per-row publish failures are recorded on the row; only bookkeeping
// failures abort the batch.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	events, err := s.repo.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	stats := batchStats{}
	defer func() {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"fetched":   len(events),
			"published": stats[outcomePublished],
			"duplicate": stats[outcomeDuplicate],
			"retry":     stats[outcomeRetry],
			"parked":    stats[outcomeParked],
		}), "outbox batch done")
	}()
	for _, event := range events {
		result, err := s.handle(ctx, event)
		if err != nil {
			return len(events), err
		}
		stats[result]++
	}
	return len(events), nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func positiveDurationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextBackoff doubles current, starting from base, capped at limit.
func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
