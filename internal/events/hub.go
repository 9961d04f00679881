package events

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
)

// Event is the payload pushed to connected clients.
type Event struct {
	Type     string    `json:"type"`
	Resource string    `json:"resource"`
	ID       uint      `json:"id"`
	At       time.Time `json:"at"`
}

// Hub fans change notifications out to connected websocket clients. The
// frontend refreshes its sidebar when it receives a permissions-updated event.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  zerolog.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger.With().Str("component", "events_hub").Logger(),
	}
}

// Upgrade gates the events route to websocket upgrade requests.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket endpoint. Clients are read from only to
// detect disconnects; the stream is push-only.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.add(conn)
		defer h.remove(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

// PermissionsUpdated broadcasts that a page/role/user mutation may have
// changed someone's accessible pages.
func (h *Hub) PermissionsUpdated(resource string, id uint) {
	h.broadcast(Event{
		Type:     "permissions-updated",
		Resource: resource,
		ID:       id,
		At:       time.Now().UTC(),
	})
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// broadcastWriteTimeout bounds how long one stalled client can hold up a
// broadcast; a write that exceeds it fails and the client is dropped.
const broadcastWriteTimeout = 5 * time.Second

func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(broadcastWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug().Err(err).Msg("dropping disconnected events client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
