package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/survey-tracker/internal/config"
)

// Open creates the session store selected by cfg.Session.Backend.
// The PostgreSQL backend runs pending migrations before returning.
func Open(ctx context.Context, cfg *config.Config) (SessionStore, error) {
	ttl := cfg.Session.TTL

	switch cfg.Session.Backend {
	case config.BackendMemory:
		slog.Info("using in-memory session store")
		return NewMemoryStore(ttl), nil

	case config.BackendRedis:
		slog.Info("using redis session store", "address", cfg.Redis.Address, "db", cfg.Redis.DB)
		return NewRedisStore(ctx, RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      ttl,
		})

	case config.BackendPostgres:
		slog.Info("using postgres session store")
		store, err := NewPostgresStore(ctx, PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
			TTL:          ttl,
		})
		if err != nil {
			return nil, err
		}

		migrations, err := Migrations(cfg.Database.MigrationsDir)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to open migrations: %w", err)
		}
		if err := RunMigrations(ctx, store.Pool(), migrations); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil

	case config.BackendSQLite:
		slog.Info("using sqlite session store", "path", cfg.SQLite.Path)
		return OpenSQLite(cfg.SQLite.Path, ttl)

	default:
		return nil, fmt.Errorf("unknown session backend: %q", cfg.Session.Backend)
	}
}
