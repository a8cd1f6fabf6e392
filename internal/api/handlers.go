package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/survey-tracker/internal/models"
	"github.com/terra-clan/survey-tracker/internal/progress"
	"github.com/terra-clan/survey-tracker/internal/session"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// progressResponse is the payload of progress and submission responses
type progressResponse struct {
	Categories []models.CategorySummary `json:"categories"`
	Submitted  *models.ResponseRecord   `json:"submitted,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondLookupError maps progress lookup errors to API errors.
// It reports false when err is not a lookup error.
func respondLookupError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, progress.ErrUnknownCategory):
		respondError(w, http.StatusNotFound, "unknown_category", "category not found")
	case errors.Is(err, progress.ErrCategoryComplete):
		respondError(w, http.StatusConflict, "category_complete", "all levels of this category are complete")
	case errors.Is(err, progress.ErrLevelNotFound):
		respondError(w, http.StatusNotFound, "level_not_found", "level not found")
	default:
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Ready(r.Context()); err != nil {
		slog.Warn("readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": s.registry.List(),
	})
}

// Progress handlers

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())

	p, err := s.tracker.GetOrInitProgress(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to load progress", "error", err, "session_id", sessionID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load progress")
		return
	}

	respondJSON(w, http.StatusOK, progressResponse{
		Categories: s.tracker.ComputeSummary(p),
	})
}

func (s *Server) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	category, ok := models.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		respondLookupError(w, progress.ErrUnknownCategory)
		return
	}

	sessionID := session.IDFromContext(r.Context())
	p, err := s.tracker.GetOrInitProgress(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to load progress", "error", err, "session_id", sessionID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load progress")
		return
	}

	page, err := s.tracker.GetSurveyPage(p, category)
	if err != nil {
		if respondLookupError(w, err) {
			return
		}
		slog.Error("failed to resolve survey", "error", err, "category", category)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to resolve survey")
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleSubmitSurvey(w http.ResponseWriter, r *http.Request) {
	category, ok := models.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		respondLookupError(w, progress.ErrUnknownCategory)
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sessionID := session.IDFromContext(r.Context())
	p, err := s.tracker.Submit(r.Context(), sessionID, category, req.Answers)
	if err != nil {
		if respondLookupError(w, err) {
			return
		}
		slog.Error("failed to submit survey", "error", err, "category", category, "session_id", sessionID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to submit survey")
		return
	}

	summary := s.tracker.ComputeSummary(p)
	s.hub.Publish(sessionID, summary)

	responses := p[category].Responses
	respondJSON(w, http.StatusOK, progressResponse{
		Categories: summary,
		Submitted:  &responses[len(responses)-1],
	})
}
