package tokenstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/config"
	"github.com/spec-kit/mentor-portal/internal/persistence"
)

// Opened is a configured store plus the health check and cleanup of whatever
// backend it sits on.
type Opened struct {
	Store Store
	Ping  func(ctx context.Context) error
	Close func()
}

// Open builds the store selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Opened, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return &Opened{Store: NewMemoryStore(), Ping: noop, Close: func() {}}, nil

	case config.StorageDriverFile:
		logger.Info("token storage: file", zap.String("path", cfg.Storage.FilePath), zap.Bool("sealed", cfg.Storage.Secret != ""))
		store := NewFileStore(cfg.Storage.FilePath, cfg.Storage.Key, WithSecret(cfg.Storage.Secret))
		return &Opened{Store: store, Ping: noop, Close: func() {}}, nil

	case config.StorageDriverRedis:
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		return &Opened{
			Store: NewRedisStore(rdb.Client, cfg.Storage.RedisPrefix, cfg.Storage.Key),
			Ping:  rdb.Ping,
			Close: rdb.Close,
		}, nil

	case config.StorageDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Opened{
			Store: NewPostgresStore(pg.PoolHandle(), cfg.Storage.Key),
			Ping:  pg.Ping,
			Close: pg.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
