package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/multierr"

	"github.com/wishwall/wishwall-backend/pkg/enums"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
)

const listenerPingInterval = 90 * time.Second

// PGOptions configures the LISTEN connection.
type PGOptions struct {
	DSN          string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
}

// PGBus relays pg_notify payloads emitted by the wishes trigger. Publishing is a
// no-op because the trigger fires on every committed write, including writes made
// outside the API.
type PGBus struct {
	*Broker
	listener *pq.Listener
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// NewPGBus opens a dedicated LISTEN connection and starts relaying notifications.
func NewPGBus(ctx context.Context, opts PGOptions, logg *logger.Logger, m *metrics.RealtimeMetrics) (*PGBus, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if opts.MinReconnect <= 0 {
		opts.MinReconnect = time.Second
	}
	if opts.MaxReconnect < opts.MinReconnect {
		opts.MaxReconnect = opts.MinReconnect
	}

	listener := pq.NewListener(opts.DSN, opts.MinReconnect, opts.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		eventCtx := logg.WithField(ctx, "listener_event", listenerEventName(ev))
		if err != nil {
			logg.Error(eventCtx, "realtime.pg_listener_event", err)
			return
		}
		logg.Info(eventCtx, "realtime.pg_listener_event")
	})
	if err := listener.Listen(opts.Channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", opts.Channel, err)
	}

	relayCtx, cancel := context.WithCancel(context.Background())
	bus := &PGBus{
		Broker:   NewBroker(logg, m),
		listener: listener,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go bus.relay(relayCtx)
	return bus, nil
}

func (p *PGBus) relay(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			// nil marks a reconnect; notifications may have been missed, so ask
			// subscribers to refetch.
			if n == nil {
				p.Dispatch(ctx, Change{Table: TableWishes, Op: enums.ChangeUpdate, IsPublic: true, OccurredAt: time.Now().UTC()})
				continue
			}
			change, err := Decode([]byte(n.Extra))
			if err != nil {
				p.logg.Warn(p.logg.WithField(ctx, "payload", n.Extra), "realtime.pg_decode_failed")
				continue
			}
			p.Dispatch(ctx, change)
		case <-ticker.C:
			go func() { _ = p.listener.Ping() }()
		}
	}
}

// Publish is a no-op; the database trigger announces changes.
func (p *PGBus) Publish(context.Context, Change) error {
	return nil
}

// Close stops relaying and releases the LISTEN connection.
func (p *PGBus) Close() error {
	var err error
	p.once.Do(func() {
		p.cancel()
		<-p.done
		err = multierr.Combine(p.listener.Close(), p.Broker.Close())
	})
	return err
}

func listenerEventName(ev pq.ListenerEventType) string {
	switch ev {
	case pq.ListenerEventConnected:
		return "connected"
	case pq.ListenerEventDisconnected:
		return "disconnected"
	case pq.ListenerEventReconnected:
		return "reconnected"
	case pq.ListenerEventConnectionAttemptFailed:
		return "connection_attempt_failed"
	default:
		return "unknown"
	}
}
