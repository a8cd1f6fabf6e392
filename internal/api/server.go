package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/survey-tracker/internal/config"
	"github.com/terra-clan/survey-tracker/internal/progress"
	"github.com/terra-clan/survey-tracker/internal/services"
	"github.com/terra-clan/survey-tracker/internal/session"
)

const requestTimeout = 60 * time.Second

// Server represents the HTTP server: HTML pages plus the JSON API
type Server struct {
	config   config.ServerConfig
	router   *chi.Mux
	tracker  *progress.Tracker
	sessions *session.Manager
	registry *services.Registry
	hub      *Hub
}

// NewServer creates a new server
func NewServer(
	cfg config.ServerConfig,
	tracker *progress.Tracker,
	sessions *session.Manager,
	registry *services.Registry,
) *Server {
	if registry == nil {
		registry = services.NewRegistry()
	}
	s := &Server{
		config:   cfg,
		tracker:  tracker,
		sessions: sessions,
		registry: registry,
		hub:      NewHub(),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Health check (no session)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		// Pages
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(middleware.NoCache)

			r.Get("/", s.handleIndexPage)
			r.Get("/survey/{category}", s.handleSurveyPage)
			r.Post("/survey/{category}", s.handleSubmitPage)
		})

		// JSON API
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
				ExposedHeaders:   []string{"X-Request-ID"},
				AllowCredentials: true,
				MaxAge:           300,
			}))

			// Long-lived websocket, outside the request timeout
			r.Get("/progress/live", s.handleLiveProgress)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))

				r.Get("/catalog", s.handleGetCatalog)
				r.Get("/catalog/{category}", s.handleGetCategory)
				r.Get("/progress", s.handleGetProgress)
				r.Get("/survey/{category}", s.handleGetSurvey)
				r.Post("/survey/{category}", s.handleSubmitSurvey)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
