package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/survey-tracker/internal/models"
	"github.com/terra-clan/survey-tracker/internal/progress"
	"github.com/terra-clan/survey-tracker/internal/session"
)

// maxAnswers bounds the qN form fields read from a submission
const maxAnswers = 256

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type indexView struct {
	Categories []models.CategorySummary
}

func (s *Server) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())

	p, err := s.tracker.GetOrInitProgress(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to load progress", "error", err, "session_id", sessionID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	renderPage(w, "index.html", indexView{Categories: s.tracker.ComputeSummary(p)})
}

func (s *Server) handleSurveyPage(w http.ResponseWriter, r *http.Request) {
	category, ok := s.pageCategory(r)
	if !ok {
		redirectHome(w, r)
		return
	}

	sessionID := session.IDFromContext(r.Context())
	p, err := s.tracker.GetOrInitProgress(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to load progress", "error", err, "session_id", sessionID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page, err := s.tracker.GetSurveyPage(p, category)
	if err != nil {
		if isLookupError(err) {
			redirectHome(w, r)
			return
		}
		slog.Error("failed to resolve survey", "error", err, "category", category)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	renderPage(w, "survey.html", page)
}

func (s *Server) handleSubmitPage(w http.ResponseWriter, r *http.Request) {
	category, ok := s.pageCategory(r)
	if !ok {
		redirectHome(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		slog.Warn("failed to parse survey form", "error", err)
	}

	sessionID := session.IDFromContext(r.Context())
	p, err := s.tracker.Submit(r.Context(), sessionID, category, answersFromForm(r.PostForm))
	if err != nil {
		if isLookupError(err) {
			redirectHome(w, r)
			return
		}
		slog.Error("failed to submit survey", "error", err, "category", category, "session_id", sessionID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.hub.Publish(sessionID, s.tracker.ComputeSummary(p))
	redirectHome(w, r)
}

// pageCategory resolves the {category} URL segment against the catalog
func (s *Server) pageCategory(r *http.Request) (models.Category, bool) {
	category, ok := models.ParseCategory(chi.URLParam(r, "category"))
	if !ok || !s.tracker.Catalog().Has(category) {
		return "", false
	}
	return category, true
}

// answersFromForm collects q0, q1, ... into a slice aligned by index.
// Gaps are left as empty strings.
func answersFromForm(form url.Values) []string {
	answers := []string{}
	for key, values := range form {
		if !strings.HasPrefix(key, "q") || len(values) == 0 {
			continue
		}
		idx, err := strconv.Atoi(key[1:])
		if err != nil || idx < 0 || idx >= maxAnswers || strconv.Itoa(idx) != key[1:] {
			continue
		}
		for len(answers) <= idx {
			answers = append(answers, "")
		}
		answers[idx] = values[0]
	}
	return answers
}

func isLookupError(err error) bool {
	return errors.Is(err, progress.ErrUnknownCategory) ||
		errors.Is(err, progress.ErrCategoryComplete) ||
		errors.Is(err, progress.ErrLevelNotFound)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func renderPage(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render page", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write page", "template", name, "error", err)
	}
}
