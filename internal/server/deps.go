package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wallet_ledger/internal/config"
	"github.com/congo-pay/wallet_ledger/internal/infra"
	"github.com/congo-pay/wallet_ledger/internal/ledger"
	"github.com/congo-pay/wallet_ledger/internal/notification"
)

// OpenBackend connects the storage engine selected by STORAGE_DRIVER.
func OpenBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (ledger.Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return nil, err
		}
		store := ledger.NewPostgresStore(pool, cfg.TxMaxRetries)
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		logger.Info("storage ready", slog.String("driver", cfg.StorageDriver))
		return store, nil
	case config.DriverSQLite:
		store, err := ledger.OpenSQLite(ctx, cfg.SQLitePath, cfg.AutoMigrate)
		if err != nil {
			return nil, err
		}
		logger.Info("storage ready", slog.String("driver", cfg.StorageDriver), slog.String("path", cfg.SQLitePath))
		return store, nil
	case config.DriverMemory:
		logger.Warn("using in-memory storage; balances are lost on restart")
		return ledger.NewInMemory(cfg.Currencies...), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// NewPublisher builds the event publisher selected by EVENTS_SINK. The
// returned close function flushes and releases it.
func NewPublisher(cfg config.Config, cache *redis.Client, logger *slog.Logger) (notification.Publisher, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.EventsSink {
	case config.SinkLog:
		return notification.NewLoggerPublisher(logger), noClose, nil
	case config.SinkNone:
		return notification.Nop{}, noClose, nil
	case config.SinkRedis:
		if cache == nil {
			return nil, nil, fmt.Errorf("redis events sink requires REDIS_URL")
		}
		return notification.NewStreamPublisher(cache, cfg.EventsStream), noClose, nil
	case config.SinkKafka:
		p, err := notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown events sink %q", cfg.EventsSink)
	}
}
