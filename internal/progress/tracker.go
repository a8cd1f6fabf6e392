// Package progress implements the level-gating rules: which survey a session
// sees next, how submissions advance a category, and when badges are awarded.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/survey-tracker/internal/catalog"
	"github.com/terra-clan/survey-tracker/internal/models"
	"github.com/terra-clan/survey-tracker/internal/storage"
)

// Lookup errors. Pages treat all of them as a redirect to the summary.
var (
	ErrUnknownCategory  = errors.New("unknown category")
	ErrCategoryComplete = errors.New("category already complete")
	ErrLevelNotFound    = errors.New("level not found")
)

// Tracker reads and advances per-session progress against a catalog
type Tracker struct {
	catalog *catalog.Catalog
	store   storage.SessionStore
}

// NewTracker creates a tracker over the given catalog and session store
func NewTracker(cat *catalog.Catalog, store storage.SessionStore) *Tracker {
	return &Tracker{
		catalog: cat,
		store:   store,
	}
}

// Catalog returns the tracker's question catalog
func (t *Tracker) Catalog() *catalog.Catalog {
	return t.catalog
}

// NewProgress returns a record with every catalog category at level 0
func (t *Tracker) NewProgress() models.UserProgress {
	p := make(models.UserProgress, len(t.catalog.Categories()))
	for _, category := range t.catalog.Categories() {
		p[category] = models.NewCategoryProgress()
	}
	return p
}

// GetOrInitProgress loads the session's progress, creating and saving a fresh
// record on first access. Categories missing from a stored record are added.
func (t *Tracker) GetOrInitProgress(ctx context.Context, sessionID string) (models.UserProgress, error) {
	p, err := t.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	if p != nil && !t.fill(p) {
		return p, nil
	}

	if p == nil {
		p = t.NewProgress()
		slog.Debug("initialized progress", "session_id", sessionID)
	}

	if err := t.store.Save(ctx, sessionID, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return p, nil
}

// fill adds fresh entries for catalog categories absent from p and reports whether it changed anything
func (t *Tracker) fill(p models.UserProgress) bool {
	changed := false
	for _, category := range t.catalog.Categories() {
		if p[category] == nil {
			p[category] = models.NewCategoryProgress()
			changed = true
		}
	}
	return changed
}

// ComputeSummary returns the display summary for every category, in catalog order
func (t *Tracker) ComputeSummary(p models.UserProgress) []models.CategorySummary {
	categories := t.catalog.Categories()
	result := make([]models.CategorySummary, 0, len(categories))

	for _, category := range categories {
		total := t.catalog.TotalLevels(category)

		completed := 0
		badges := []string{}
		if cp := p[category]; cp != nil {
			completed = cp.Level
			badges = append(badges, cp.Badges...)
		}

		summary := models.CategorySummary{
			Key:             category,
			Name:            category.DisplayName(),
			PercentComplete: percent(completed, total),
			CompletedLevels: completed,
			TotalLevels:     total,
			Badges:          badges,
		}
		if completed < total {
			next := completed + 1
			summary.NextLevel = &next
		}

		result = append(result, summary)
	}

	return result
}

// GetSurveyPage resolves the next incomplete level of a category and returns its questions
func (t *Tracker) GetSurveyPage(p models.UserProgress, category models.Category) (*models.SurveyPage, error) {
	level, questions, err := t.resolve(p, category)
	if err != nil {
		return nil, err
	}

	return &models.SurveyPage{
		Category:  category,
		Name:      category.DisplayName(),
		Level:     level,
		Questions: append([]string(nil), questions...),
	}, nil
}

// SubmitSurvey records answers for the category's next level and advances it by one.
// Answers are aligned to questions by index; missing ones are recorded as "".
// The final level awards the category's Champion badge.
func (t *Tracker) SubmitSurvey(p models.UserProgress, category models.Category, answers []string) (*models.ResponseRecord, error) {
	level, questions, err := t.resolve(p, category)
	if err != nil {
		return nil, err
	}

	record := models.ResponseRecord{
		Level:   level,
		Answers: make([]models.Answer, len(questions)),
	}
	for i, q := range questions {
		record.Answers[i] = models.Answer{Question: q}
		if i < len(answers) {
			record.Answers[i].Answer = answers[i]
		}
	}

	cp := p[category]
	if cp == nil {
		cp = models.NewCategoryProgress()
		p[category] = cp
	}
	cp.Responses = append(cp.Responses, record)
	cp.Level = level

	if level == t.catalog.TotalLevels(category) {
		cp.Badges = append(cp.Badges, category.ChampionBadge())
	}

	return &record, nil
}

// Submit loads the session's progress, applies SubmitSurvey and saves the result
func (t *Tracker) Submit(ctx context.Context, sessionID string, category models.Category, answers []string) (models.UserProgress, error) {
	if !t.catalog.Has(category) {
		return nil, ErrUnknownCategory
	}

	p, err := t.GetOrInitProgress(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	record, err := t.SubmitSurvey(p, category, answers)
	if err != nil {
		return nil, err
	}

	if err := t.store.Save(ctx, sessionID, p); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	slog.Info("survey submitted",
		"session_id", sessionID,
		"category", category,
		"level", record.Level,
		"badges", len(p[category].Badges),
	)

	return p, nil
}

// resolve returns the level to present next (current level + 1) and its questions
func (t *Tracker) resolve(p models.UserProgress, category models.Category) (int, []string, error) {
	if !t.catalog.Has(category) {
		return 0, nil, ErrUnknownCategory
	}

	completed := 0
	if cp := p[category]; cp != nil {
		completed = cp.Level
	}

	level := completed + 1
	if level > t.catalog.TotalLevels(category) {
		return 0, nil, ErrCategoryComplete
	}

	questions, ok := t.catalog.Questions(category, level)
	if !ok {
		return 0, nil, ErrLevelNotFound
	}

	return level, questions, nil
}

// percent returns floor(100 * completed / total), capped at 100 for records
// made against a larger catalog
func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		return 100
	}
	return completed * 100 / total
}
