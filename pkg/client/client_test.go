package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/survey-tracker/internal/api"
	"github.com/terra-clan/survey-tracker/internal/catalog"
	"github.com/terra-clan/survey-tracker/internal/config"
	"github.com/terra-clan/survey-tracker/internal/models"
	"github.com/terra-clan/survey-tracker/internal/progress"
	"github.com/terra-clan/survey-tracker/internal/session"
	"github.com/terra-clan/survey-tracker/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tracker := progress.NewTracker(catalog.MustDefault(), storage.NewMemoryStore(time.Hour))
	sessions := session.NewManager(session.Options{Secret: "test", TTL: time.Hour})
	ts := httptest.NewServer(api.NewServer(config.ServerConfig{}, tracker, sessions, nil).Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_CompletesCategory(t *testing.T) {
	ts := newTestServer(t)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	prog, err := c.Progress(ctx)
	require.NoError(t, err)
	require.Len(t, prog.Categories, 3)

	for level := 1; level <= 3; level++ {
		page, err := c.Survey(ctx, models.CategoryPhysical)
		require.NoError(t, err)
		assert.Equal(t, level, page.Level)
		assert.Len(t, page.Questions, 2)

		prog, err = c.Submit(ctx, models.CategoryPhysical, []string{"yes", "no", "ignored"})
		require.NoError(t, err)
		require.NotNil(t, prog.Submitted)
		assert.Equal(t, level, prog.Submitted.Level)
		assert.Len(t, prog.Submitted.Answers, 2)
	}

	physical, ok := prog.Category(models.CategoryPhysical)
	require.True(t, ok)
	assert.Equal(t, 100, physical.PercentComplete)
	assert.Equal(t, []string{"Physical Champion"}, physical.Badges)
	assert.Nil(t, physical.NextLevel)

	spiritual, ok := prog.Category(models.CategorySpiritual)
	require.True(t, ok)
	assert.Equal(t, 0, spiritual.PercentComplete)

	_, err = c.Survey(ctx, models.CategoryPhysical)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "category_complete", apiErr.Code)
}

func TestClient_SeparateSessions(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a, err := NewClient(ts.URL)
	require.NoError(t, err)
	b, err := NewClient(ts.URL)
	require.NoError(t, err)

	_, err = a.Submit(ctx, models.CategoryMental, []string{"yes"})
	require.NoError(t, err)

	prog, err := b.Progress(ctx)
	require.NoError(t, err)
	mental, ok := prog.Category(models.CategoryMental)
	require.True(t, ok)
	assert.Equal(t, 0, mental.CompletedLevels)
}

func TestClient_Catalog(t *testing.T) {
	ts := newTestServer(t)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)
	ctx := context.Background()

	categories, err := c.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, models.CategorySpiritual, categories[0].Category)

	physical, err := c.Category(ctx, models.CategoryPhysical)
	require.NoError(t, err)
	assert.Len(t, physical.Levels, 3)

	_, err = c.Category(ctx, models.Category("cosmic"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_UnknownCategory(t *testing.T) {
	ts := newTestServer(t)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), models.Category("cosmic"), nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unknown_category", apiErr.Code)
}
