package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/dhruvj7/careflow/internal/models"
)

var errHubClosed = errors.New("session hub closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page and the API are served from different origins during local
	// development, so origin checking is left to the deployment proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSMessage is the envelope pushed to connected pages. Type is either
// "navigate" (Command set) or "state" (State set).
type WSMessage struct {
	Type    string                  `json:"type"`
	Command *models.RouteCommand    `json:"command,omitempty"`
	State   *models.NavigationState `json:"state,omitempty"`
}

// wsHub fans session events out to every page connected for that session.
// It implements flow.Router: route changes reach the browser as "navigate"
// messages.
type wsHub struct {
	sessionID string

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func newWSHub(sessionID string) *wsHub {
	return &wsHub{
		sessionID: sessionID,
		conns:     make(map[*websocket.Conn]struct{}),
	}
}

// Navigate pushes a route command to every connected page.
func (h *wsHub) Navigate(cmd models.RouteCommand) {
	slog.Debug("wsHub.Navigate: pushing route command", "sessionID", h.sessionID, "path", cmd.Path)
	h.broadcast(WSMessage{Type: "navigate", Command: &cmd})
}

// pushState pushes a fresh navigation-state snapshot to every connected page.
func (h *wsHub) pushState(state models.NavigationState) {
	h.broadcast(WSMessage{Type: "state", State: &state})
}

func (h *wsHub) broadcast(msg WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			slog.Warn("wsHub.broadcast: write failed, dropping connection", "sessionID", h.sessionID, "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// register writes the initial message and adds the connection while holding
// the lock. Broadcasts also write under the lock, so the first frame cannot
// interleave with a concurrent push on the same connection.
func (h *wsHub) register(conn *websocket.Conn, initial WSMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		conn.Close()
		return errHubClosed
	}
	if err := conn.WriteJSON(initial); err != nil {
		conn.Close()
		return err
	}
	h.conns[conn] = struct{}{}
	return nil
}

func (h *wsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		conn.Close()
		delete(h.conns, conn)
	}
}

func (h *wsHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

// wsHandler upgrades the connection and registers it with the session hub.
// The first message after connect is a state snapshot so the page can render
// without a separate fetch.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.getOrCreateSession(sessionID)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Server.wsHandler: upgrade failed", "error", err, "sessionID", sessionID)
		return
	}
	slog.Debug("Server.wsHandler: page connected", "sessionID", sessionID)

	state := sess.automation.Snapshot(r.Context())
	if err := sess.hub.register(conn, WSMessage{Type: "state", State: &state}); err != nil {
		return
	}

	// Drain reads until the page goes away. Inbound traffic arrives over the
	// REST endpoints, not the socket.
	go func() {
		defer sess.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				slog.Debug("Server.wsHandler: page disconnected", "sessionID", sessionID)
				return
			}
		}
	}()
}
