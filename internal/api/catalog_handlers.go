package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/survey-tracker/internal/models"
)

// Catalog handlers: read-only browsing of categories and their levels

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	categories := s.tracker.Catalog().List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"total":      len(categories),
	})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := models.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "category not found")
		return
	}

	levels, ok := s.tracker.Catalog().Levels(category)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "category not found")
		return
	}

	respondJSON(w, http.StatusOK, models.CategoryLevels{
		Category: category,
		Name:     category.DisplayName(),
		Levels:   levels,
	})
}
