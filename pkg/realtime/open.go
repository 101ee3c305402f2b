package realtime

import (
	"context"
	"fmt"

	"github.com/wishwall/wishwall-backend/pkg/config"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
	redisclient "github.com/wishwall/wishwall-backend/pkg/redis"
)

// Open builds the bus selected by cfg.Realtime.Driver.
func Open(ctx context.Context, cfg *config.Config, redis *redisclient.Client, logg *logger.Logger, m *metrics.RealtimeMetrics) (Bus, error) {
	driver := cfg.Realtime.NormalizedDriver()
	ctx = logg.WithField(ctx, "realtime_driver", driver)
	switch driver {
	case config.RealtimeDriverMemory, "":
		logg.Info(ctx, "realtime.bus_ready")
		return NewBroker(logg, m), nil
	case config.RealtimeDriverRedis:
		bus, err := NewRedisBus(ctx, redis, cfg.Realtime.Channel, logg, m)
		if err != nil {
			return nil, err
		}
		logg.Info(ctx, "realtime.bus_ready")
		return bus, nil
	case config.RealtimeDriverPostgres:
		if cfg.FeatureFlags.UseSQLite {
			return nil, fmt.Errorf("realtime driver %q requires postgres", driver)
		}
		bus, err := NewPGBus(ctx, PGOptions{
			DSN:          cfg.DB.DSN,
			Channel:      config.PGNotifyChannel,
			MinReconnect: cfg.Realtime.ListenerMinReconnect,
			MaxReconnect: cfg.Realtime.ListenerMaxReconnect,
		}, logg, m)
		if err != nil {
			return nil, err
		}
		logg.Info(ctx, "realtime.bus_ready")
		return bus, nil
	default:
		return nil, fmt.Errorf("unknown realtime driver %q", driver)
	}
}
