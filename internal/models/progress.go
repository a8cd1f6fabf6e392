package models

// UserProgress is the per-session progress record, keyed by category
type UserProgress map[Category]*CategoryProgress

// CategoryProgress tracks completion state for one category.
// Invariant: len(Responses) == Level, len(Badges) <= 1.
type CategoryProgress struct {
	Level     int              `json:"level"`
	Responses []ResponseRecord `json:"responses"`
	Badges    []string         `json:"badges"`
}

// ResponseRecord is the answer set submitted for one completed level
type ResponseRecord struct {
	Level   int      `json:"level"`
	Answers []Answer `json:"answers"`
}

// Answer pairs a question with the text the user submitted for it
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewCategoryProgress returns a fresh level-0 record
func NewCategoryProgress() *CategoryProgress {
	return &CategoryProgress{
		Level:     0,
		Responses: []ResponseRecord{},
		Badges:    []string{},
	}
}

// CategorySummary is the display view of one category's progress
type CategorySummary struct {
	Key             Category `json:"key"`
	Name            string   `json:"name"`
	PercentComplete int      `json:"percent_complete"`
	CompletedLevels int      `json:"completed_levels"`
	TotalLevels     int      `json:"total_levels"`
	Badges          []string `json:"badges"`
	NextLevel       *int     `json:"next_level"`
}

// IsComplete reports whether every level of the category has been completed
func (s CategorySummary) IsComplete() bool {
	return s.NextLevel == nil
}

// SurveyPage is the question set presented for a category's next level
type SurveyPage struct {
	Category  Category `json:"category"`
	Name      string   `json:"name"`
	Level     int      `json:"level"`
	Questions []string `json:"questions"`
}

// SubmitRequest is the JSON body for a survey submission
type SubmitRequest struct {
	Answers []string `json:"answers"`
}
