package services

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisProvider checks Redis reachability
type RedisProvider struct {
	BaseProvider
	client *redis.Client
}

// NewRedisProvider creates a Redis checker; the connection is made lazily
func NewRedisProvider(address, password string, db int) *RedisProvider {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return &RedisProvider{
		BaseProvider: BaseProvider{serviceType: "redis"},
		client:       client,
	}
}

// HealthCheck verifies Redis connectivity
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
