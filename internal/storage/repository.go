package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/terra-clan/survey-tracker/internal/models"
)

// SessionStore holds one progress record per session id.
// Load returns (nil, nil) when the session has no record or it has expired.
// Concurrent writes to the same id are last-write-wins.
type SessionStore interface {
	Load(ctx context.Context, id string) (models.UserProgress, error)
	Save(ctx context.Context, id string, progress models.UserProgress) error
	Delete(ctx context.Context, id string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by stores that need expired records purged periodically
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int, error)
}

func encodeProgress(p models.UserProgress) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return data, nil
}

func decodeProgress(data []byte) (models.UserProgress, error) {
	var p models.UserProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	if p == nil {
		p = models.UserProgress{}
	}
	return p, nil
}
