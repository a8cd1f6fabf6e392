package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/survey-tracker/internal/storage"
)

// Cleaner handles periodic removal of expired sessions
type Cleaner struct {
	sweeper  storage.Sweeper
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(sweeper storage.Sweeper, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine.
// The returned channel is closed once the worker has stopped.
func (c *Cleaner) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx)
	}()
	return done
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup purges expired sessions once
func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	removed, err := c.sweeper.DeleteExpired(ctx)
	if err != nil {
		slog.Error("failed to delete expired sessions", "error", err)
		return
	}

	if removed == 0 {
		slog.Debug("no expired sessions found")
		return
	}

	slog.Info("expired sessions deleted", "count", removed)
}
