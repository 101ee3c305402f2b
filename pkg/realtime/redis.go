package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
	redisclient "github.com/wishwall/wishwall-backend/pkg/redis"
)

// RedisBus publishes changes to a Redis channel and relays every message on that
// channel (including its own) to local subscribers, so all API instances see the
// same stream.
type RedisBus struct {
	*Broker
	client  *redisclient.Client
	channel string
	sub     *redis.PubSub
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// NewRedisBus subscribes to channel and starts the relay goroutine.
func NewRedisBus(ctx context.Context, client *redisclient.Client, channel string, logg *logger.Logger, m *metrics.RealtimeMetrics) (*RedisBus, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	name := client.ChannelName(channel)
	sub, err := client.Subscribe(ctx, name)
	if err != nil {
		return nil, err
	}
	relayCtx, cancel := context.WithCancel(context.Background())
	bus := &RedisBus{
		Broker:  NewBroker(logg, m),
		client:  client,
		channel: name,
		sub:     sub,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go bus.relay(relayCtx)
	return bus, nil
}

func (r *RedisBus) relay(ctx context.Context) {
	defer close(r.done)
	messages := r.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			change, err := Decode([]byte(msg.Payload))
			if err != nil {
				r.logg.Warn(r.logg.WithField(ctx, "payload", msg.Payload), "realtime.redis_decode_failed")
				continue
			}
			r.Dispatch(ctx, change)
		}
	}
}

// Publish sends the change to Redis. Local delivery happens when the message comes back.
func (r *RedisBus) Publish(ctx context.Context, change Change) error {
	payload, err := Encode(change)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload)
}

// Close stops the relay and every local subscription.
func (r *RedisBus) Close() error {
	var err error
	r.once.Do(func() {
		r.cancel()
		err = r.sub.Close()
		<-r.done
		_ = r.Broker.Close()
	})
	return err
}
