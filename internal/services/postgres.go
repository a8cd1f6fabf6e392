package services

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresProvider checks PostgreSQL reachability over a dedicated connection
type PostgresProvider struct {
	BaseProvider
	db *sql.DB
}

// NewPostgresProvider opens a lib/pq handle for dsn; the connection is made lazily
func NewPostgresProvider(dsn string) (*PostgresProvider, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &PostgresProvider{
		BaseProvider: BaseProvider{serviceType: "postgres"},
		db:           db,
	}, nil
}

// HealthCheck verifies PostgreSQL connectivity
func (p *PostgresProvider) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database handle
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}
