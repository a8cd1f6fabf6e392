package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/survey-tracker/internal/models"
)

//go:embed default.yaml
var defaultYAML []byte

// Catalog is the read-only question table: categories, their levels and questions
type Catalog struct {
	categories []models.CategoryLevels
	index      map[models.Category]int
}

// catalogFile represents the YAML structure of a catalog file
type catalogFile struct {
	Categories []categoryFile `yaml:"categories"`
}

type categoryFile struct {
	Category string         `yaml:"category"`
	Levels   []models.Level `yaml:"levels"`
}

// Default returns the built-in catalog
func Default() (*Catalog, error) {
	c, err := Parse(defaultYAML)
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return c, nil
}

// MustDefault is like Default but panics on error
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load returns the catalog from path, or the built-in one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// LoadFile loads and validates a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Info("catalog loaded", "file", path, "categories", len(c.categories))
	return c, nil
}

// Parse builds and validates a catalog from YAML bytes
func Parse(data []byte) (*Catalog, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	entries := make([]models.CategoryLevels, 0, len(cf.Categories))
	for _, f := range cf.Categories {
		category, ok := models.ParseCategory(f.Category)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", f.Category)
		}
		entries = append(entries, models.CategoryLevels{
			Category: category,
			Name:     category.DisplayName(),
			Levels:   f.Levels,
		})
	}

	return New(entries)
}

// New builds a catalog from explicit entries and validates it
func New(entries []models.CategoryLevels) (*Catalog, error) {
	c := &Catalog{
		categories: make([]models.CategoryLevels, 0, len(entries)),
		index:      make(map[models.Category]int, len(entries)),
	}

	for _, e := range entries {
		if _, dup := c.index[e.Category]; dup {
			return nil, fmt.Errorf("duplicate category %q", e.Category)
		}
		if e.Name == "" {
			e.Name = e.Category.DisplayName()
		}
		c.index[e.Category] = len(c.categories)
		c.categories = append(c.categories, e)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every known category is present with contiguous,
// 1-based levels that each hold at least one question
func (c *Catalog) Validate() error {
	var errs []error

	for _, known := range models.AllCategories {
		if _, ok := c.index[known]; !ok {
			errs = append(errs, fmt.Errorf("category %q is missing", known))
		}
	}

	for _, e := range c.categories {
		if len(e.Levels) == 0 {
			errs = append(errs, fmt.Errorf("category %q has no levels", e.Category))
			continue
		}
		for i, lvl := range e.Levels {
			if lvl.Ordinal != i+1 {
				errs = append(errs, fmt.Errorf("category %q: level at position %d has ordinal %d, want %d",
					e.Category, i+1, lvl.Ordinal, i+1))
			}
			if len(lvl.Questions) == 0 {
				errs = append(errs, fmt.Errorf("category %q level %d has no questions", e.Category, lvl.Ordinal))
			}
			for j, q := range lvl.Questions {
				if strings.TrimSpace(q) == "" {
					errs = append(errs, fmt.Errorf("category %q level %d question %d is blank", e.Category, lvl.Ordinal, j))
				}
			}
		}
	}

	return errors.Join(errs...)
}

// Categories returns the category identifiers in catalog order
func (c *Catalog) Categories() []models.Category {
	result := make([]models.Category, 0, len(c.categories))
	for _, e := range c.categories {
		result = append(result, e.Category)
	}
	return result
}

// List returns every category with its levels, in catalog order
func (c *Catalog) List() []models.CategoryLevels {
	result := make([]models.CategoryLevels, len(c.categories))
	copy(result, c.categories)
	return result
}

// Has reports whether the category is in the catalog
func (c *Catalog) Has(category models.Category) bool {
	_, ok := c.index[category]
	return ok
}

// Levels returns the ordered levels for a category
func (c *Catalog) Levels(category models.Category) ([]models.Level, bool) {
	i, ok := c.index[category]
	if !ok {
		return nil, false
	}
	return c.categories[i].Levels, true
}

// TotalLevels returns the number of levels in a category (0 if unknown)
func (c *Catalog) TotalLevels(category models.Category) int {
	levels, _ := c.Levels(category)
	return len(levels)
}

// Questions returns the question list for a category level
func (c *Catalog) Questions(category models.Category, ordinal int) ([]string, bool) {
	levels, ok := c.Levels(category)
	if !ok {
		return nil, false
	}
	for _, lvl := range levels {
		if lvl.Ordinal == ordinal {
			return lvl.Questions, true
		}
	}
	return nil, false
}

// Marshal renders the catalog back to its YAML file form
func (c *Catalog) Marshal() ([]byte, error) {
	cf := catalogFile{Categories: make([]categoryFile, 0, len(c.categories))}
	for _, e := range c.categories {
		cf.Categories = append(cf.Categories, categoryFile{
			Category: string(e.Category),
			Levels:   e.Levels,
		})
	}
	return yaml.Marshal(cf)
}
