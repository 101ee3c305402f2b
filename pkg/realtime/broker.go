package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
)

const subscriberQueue = 16

// ErrClosed is returned when subscribing to a closed broker.
var ErrClosed = errors.New("realtime broker closed")

// Broker fans changes out to local subscribers. It is the "memory" driver and the
// delivery half of the other drivers.
type Broker struct {
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics

	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

type subscription struct {
	filter  Filter
	handler Handler
	queue   chan Change
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewBroker constructs an empty broker.
func NewBroker(logg *logger.Logger, m *metrics.RealtimeMetrics) *Broker {
	return &Broker{
		logg:    logg,
		metrics: m,
		subs:    make(map[uint64]*subscription),
	}
}

// Subscribe registers handler for changes matching filter until ctx ends or the
// returned Unsubscribe is called.
func (b *Broker) Subscribe(ctx context.Context, filter Filter, handler Handler) (Unsubscribe, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		filter:  filter,
		handler: handler,
		queue:   make(chan Change, subscriberQueue),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go b.run(subCtx, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(id)
			sub.cancel()
			<-sub.done
		})
	}, nil
}

func (b *Broker) run(ctx context.Context, sub *subscription) {
	defer close(sub.done)
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-sub.queue:
			if ctx.Err() != nil {
				return
			}
			sub.handler(ctx, change)
		}
	}
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Publish delivers the change to local subscribers.
func (b *Broker) Publish(ctx context.Context, change Change) error {
	b.Dispatch(ctx, change)
	return nil
}

// Dispatch enqueues change on every matching subscriber. A subscriber whose queue is
// full already has undelivered changes, so the change is dropped for it.
func (b *Broker) Dispatch(ctx context.Context, change Change) {
	b.metrics.ChangeReceived(string(change.Op))

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.filter.Match(change) {
			continue
		}
		select {
		case sub.queue <- change:
		default:
			b.logg.Debug(ctx, "realtime.subscriber_queue_full")
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close cancels every subscription and waits for their handlers.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for id, sub := range b.subs {
		subs = append(subs, sub)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}
	return nil
}
