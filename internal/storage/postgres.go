package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/survey-tracker/internal/models"
)

// PostgresStore keeps progress records in a PostgreSQL sessions table
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
	TTL          time.Duration
}

// NewPostgresStore creates a new PostgreSQL-backed session store
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, ttl: cfg.TTL}, nil
}

// Pool exposes the connection pool for migrations
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Load returns the session's progress, or nil if absent or expired
func (s *PostgresStore) Load(ctx context.Context, id string) (models.UserProgress, error) {
	query := `
		SELECT progress
		FROM sessions
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`

	var data []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return decodeProgress(data)
}

// Save upserts the session's progress and refreshes its expiry
func (s *PostgresStore) Save(ctx context.Context, id string, progress models.UserProgress) error {
	data, err := encodeProgress(progress)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (id, progress, updated_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (id) DO UPDATE
		SET progress = EXCLUDED.progress, updated_at = NOW(), expires_at = EXCLUDED.expires_at
	`

	if _, err := s.pool.Exec(ctx, query, id, data, expiryTime(s.ttl)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session's row
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired session row
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// expiryTime returns nil for a non-positive ttl so the row never expires
func expiryTime(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := time.Now().UTC().Add(ttl)
	return &t
}
