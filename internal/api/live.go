package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/survey-tracker/internal/models"
	"github.com/terra-clan/survey-tracker/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveMessage is sent to live progress subscribers
type LiveMessage struct {
	Type       string                   `json:"type"`
	Categories []models.CategorySummary `json:"categories,omitempty"`
}

// Hub fans out summary updates to the websocket subscribers of each session
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan []models.CategorySummary]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan []models.CategorySummary]struct{}),
	}
}

// Subscribe registers a listener for a session; call the returned func to unsubscribe
func (h *Hub) Subscribe(sessionID string) (<-chan []models.CategorySummary, func()) {
	ch := make(chan []models.CategorySummary, 1)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan []models.CategorySummary]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[sessionID], ch)
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
	}
}

// Publish delivers a summary to every subscriber of the session.
// A subscriber that has not consumed its previous update gets only the latest one.
func (h *Hub) Publish(sessionID string, summary []models.CategorySummary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[sessionID] {
		select {
		case <-ch:
		default:
		}
		ch <- summary
	}
}

// Subscribers returns the number of listeners for a session
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

func (s *Server) handleLiveProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())

	p, err := s.tracker.GetOrInitProgress(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to load progress", "error", err, "session_id", sessionID)
		http.Error(w, "failed to load progress", http.StatusInternalServerError)
		return
	}

	updates, unsubscribe := s.hub.Subscribe(sessionID)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("live progress connected", "session_id", sessionID)

	if err := sendLiveMessage(conn, LiveMessage{Type: "summary", Categories: s.tracker.ComputeSummary(p)}); err != nil {
		return
	}

	// The client never sends anything meaningful; reading detects disconnects
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			slog.Info("live progress disconnected", "session_id", sessionID)
			return
		case summary := <-updates:
			if err := sendLiveMessage(conn, LiveMessage{Type: "summary", Categories: summary}); err != nil {
				return
			}
		}
	}
}

func sendLiveMessage(conn *websocket.Conn, msg LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal live message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live message", "error", err)
		return err
	}
	return nil
}
