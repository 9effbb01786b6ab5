package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/models"
)

const EventViewUpdated = "view.updated"

type Event struct {
	Type    string      `json:"type"`
	Session string      `json:"session"`
	View    models.View `json:"view"`
	At      time.Time   `json:"at"`
}

// Source is what a connection streams from; *view.Controller satisfies it.
type Source interface {
	View() models.View
	Subscribe() (<-chan models.View, func())
}

type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	session string
	conn    *websocket.Conn
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Session IDs are unguessable and nothing here is private.
				return true
			},
		},
		clients: map[*client]struct{}{},
	}
}

// Serve upgrades the request and streams src until either side goes away.
// The first message is always the current view.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, session string, src Source) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "session", session, "error", err)
		return
	}

	updates, cancel := src.Subscribe()
	c := &client{session: session, conn: conn}
	h.addClient(c)

	go h.writePump(c, src.View(), updates)
	h.readPump(c)
	cancel()
	h.removeClient(c)
}

// Clients returns how many connections are open for session.
func (h *Hub) Clients(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if c.session == session {
			n++
		}
	}
	return n
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client, initial models.View, updates <-chan models.View) {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	if err := h.send(c, initial); err != nil {
		return
	}
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := h.send(c, v); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) send(c *client, v models.View) error {
	b, err := json.Marshal(Event{Type: EventViewUpdated, Session: c.session, View: v, At: time.Now().UTC()})
	if err != nil {
		slog.Error("failed to encode view event", "session", c.session, "error", err)
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}
