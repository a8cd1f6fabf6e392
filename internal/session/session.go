package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const sessionIDContextKey contextKey = "session_id"

// Manager issues and verifies signed session cookies carrying a session id
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Options configures a Manager
type Options struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Claims is the signed payload of a session cookie
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager creates a session manager
func NewManager(opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "survey_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 31 * 24 * time.Hour
	}
	return &Manager{
		secret:     []byte(opts.Secret),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
	}
}

// CookieName returns the name of the session cookie
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue signs a token for the given session id
func (m *Manager) Issue(sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies a token and returns its session id
func (m *Manager) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return "", errors.New("invalid token")
	}
	return claims.SessionID, nil
}

// Middleware ensures every request carries a session id in its context.
// A missing, tampered or expired cookie is replaced with a new session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			if id, err := m.Parse(cookie.Value); err == nil {
				sessionID = id
			} else {
				slog.Debug("discarding invalid session cookie", "error", err)
			}
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			token, err := m.Issue(sessionID)
			if err != nil {
				slog.Error("failed to issue session token", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(m.ttl.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(ContextWithID(r.Context(), sessionID)))
	})
}

// IDFromContext extracts the session id from context
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithID adds a session id to context
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id)
}
