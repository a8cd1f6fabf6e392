package models

import "strings"

// Category identifies one of the fixed survey domains
type Category string

const (
	CategorySpiritual Category = "spiritual"
	CategoryPhysical  Category = "physical"
	CategoryMental    Category = "mental"
)

// AllCategories lists every known category in display order
var AllCategories = []Category{CategorySpiritual, CategoryPhysical, CategoryMental}

// ParseCategory resolves a category identifier, ignoring case and surrounding spaces
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// DisplayName returns the capitalized category name (e.g. "Physical")
func (c Category) DisplayName() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// ChampionBadge returns the badge awarded for completing the category's final level
func (c Category) ChampionBadge() string {
	return c.DisplayName() + " Champion"
}

// Level is one stage of a category's questionnaire
type Level struct {
	Ordinal   int      `json:"level" yaml:"level"`
	Questions []string `json:"questions" yaml:"questions"`
}

// CategoryLevels is the ordered level list for a single category
type CategoryLevels struct {
	Category Category `json:"category" yaml:"category"`
	Name     string   `json:"name" yaml:"-"`
	Levels   []Level  `json:"levels" yaml:"levels"`
}
