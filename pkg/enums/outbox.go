package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateWish OutboxAggregateType = "wish"
	AggregateLike OutboxAggregateType = "like"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateWish,
	AggregateLike,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event written to outbox_events.
type OutboxEventType string

const (
	EventWishCreated OutboxEventType = "wish_created"
	EventWishUpdated OutboxEventType = "wish_updated"
	EventWishDeleted OutboxEventType = "wish_deleted"
	EventWishLiked   OutboxEventType = "wish_liked"
	EventWishUnliked OutboxEventType = "wish_unliked"
)

var validOutboxEventTypes = []OutboxEventType{
	EventWishCreated,
	EventWishUpdated,
	EventWishDeleted,
	EventWishLiked,
	EventWishUnliked,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
