package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("store", NewPingChecker("memory", stubPinger{}))
	r.Register("cache", NewPingChecker("redis", stubPinger{err: errors.New("down")}))

	assert.Equal(t, []string{"cache", "store"}, r.List())
	assert.Equal(t, "memory", r.Get("store").Type())
	assert.Nil(t, r.Get("missing"))

	results := r.HealthCheckAll(context.Background())
	assert.NoError(t, results["store"])
	assert.Error(t, results["cache"])

	err := r.Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: down")

	r.Unregister("cache")
	assert.NoError(t, r.Ready(context.Background()))
}

func TestRedisProvider(t *testing.T) {
	mr := miniredis.RunT(t)

	p := NewRedisProvider(mr.Addr(), "", 0)
	t.Cleanup(func() { p.Close() })

	assert.Equal(t, "redis", p.Type())
	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestPostgresProvider_Unreachable(t *testing.T) {
	p, err := NewPostgresProvider("postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	assert.Equal(t, "postgres", p.Type())
	assert.Error(t, p.HealthCheck(ctx))
}
