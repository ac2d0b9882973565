// Package bootstrap opens the configured zone store for the server and the
// operator tooling.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"edge_redirects/internal/config"
	"edge_redirects/internal/server"
	"edge_redirects/internal/store"
	"edge_redirects/internal/zonefile"
)

// Backend is an opened zone store with the resources to release on shutdown
type Backend struct {
	Store     store.ReadWriter
	Resources []server.Resource
}

// Close releases every resource immediately
func (b *Backend) Close(ctx context.Context) error {
	var firstErr error
	for i := len(b.Resources) - 1; i >= 0; i-- {
		if err := b.Resources[i].Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenStore connects to the backend selected by STORE_BACKEND
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Store.Backend {
	case config.BackendRedis:
		redisConfig := store.DefaultRedisConfig()
		redisConfig.Addr = cfg.Redis.Addr
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB
		redisConfig.Prefix = cfg.Redis.KeyPrefix
		redisConfig.Logger = logger

		rs, err := store.NewRedisStore(redisConfig)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store:     rs,
			Resources: []server.Resource{server.NewRedisResource("redis", rs.Client())},
		}, nil

	case config.BackendPostgres:
		pool, err := config.NewPool(config.NewDBConfig(cfg.Database, logger))
		if err != nil {
			return nil, err
		}

		ps := store.NewPostgresStore(pool, logger)
		if err := ps.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &Backend{
			Store:     ps,
			Resources: []server.Resource{server.NewDatabaseResource("postgres", pool)},
		}, nil

	case config.BackendMemory:
		seed := map[string][]byte{}
		if cfg.Store.ZonesDir != "" {
			entries, err := zonefile.LoadDir(cfg.Store.ZonesDir)
			if err != nil {
				return nil, err
			}
			seed = zonefile.Records(entries)
		}

		logger.Info("memory store seeded", "zones_dir", cfg.Store.ZonesDir, "zones", len(seed))
		return &Backend{Store: store.NewMemoryStore(seed)}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
