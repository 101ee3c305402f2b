package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/wishwall/wishwall-backend/pkg/db/models"
	"github.com/wishwall/wishwall-backend/pkg/outbox/registry"
)

type outcome int

const (
	outcomePublished outcome = iota
	outcomeDuplicate
	outcomeRetry
	outcomeParked
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// handle moves one row forward. The returned error is reserved for failed
// bookkeeping; publish failures are recorded on the row instead.
func (s *Service) handle(ctx context.Context, event models.OutboxEvent) (outcome, error) {
	ctx = s.logg.WithFields(ctx, eventFields(event))
	eventType := string(event.EventType)

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcomeParked, s.park(ctx, event, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Descriptor.Topic,
	})

	duplicate, err := s.publishOnce(ctx, event, resolved)
	var nonRetry registry.NonRetryableError
	switch {
	case errors.As(err, &nonRetry):
		return outcomeParked, s.park(ctx, event, err)
	case err != nil && event.AttemptCount+1 >= s.maxAttempts:
		return outcomeParked, s.park(ctx, event, fmt.Errorf("max publish attempts reached: %w", err))
	case err != nil:
		s.metrics.IncFailed(eventType)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"attempt_count": event.AttemptCount + 1,
			"error":         err.Error(),
		}), "outbox publish failed")
		if markErr := s.repo.MarkFailed(ctx, event.ID, err); markErr != nil {
			return outcomeRetry, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
		}
		return outcomeRetry, nil
	}

	if err := s.repo.MarkPublished(ctx, event.ID); err != nil {
		return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	if duplicate {
		s.logg.Info(ctx, "outbox event already published")
		return outcomeDuplicate, nil
	}
	s.metrics.IncPublished(eventType)
	s.logg.Info(ctx, "outbox event published")
	return outcomePublished, nil
}

// park stops retries for a row that can never succeed.
func (s *Service) park(ctx context.Context, event models.OutboxEvent, cause error) error {
	s.metrics.IncTerminal(string(event.EventType))
	s.logg.Warn(s.logg.WithField(ctx, "error", cause.Error()), "outbox event will not be retried")
	if err := s.repo.MarkTerminal(ctx, event.ID, s.maxAttempts, cause); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

// publishOnce reports true when the guard already saw this event id.
func (s *Service) publishOnce(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (bool, error) {
	send := func(ctx context.Context) error {
		return s.send(ctx, event, resolved)
	}
	if s.guard == nil {
		return false, send(ctx)
	}
	return s.guard.Guard(ctx, workerName, event.ID, send)
}

func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publishers(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(ctx, messageFor(event, resolved))
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

// messageFor carries the stored envelope verbatim; attributes let
// subscribers filter without decoding the body.
func messageFor(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
