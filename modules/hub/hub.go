package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// browser UI runs on a different origin in development
		return true
	},
}

// Event - one broadcast frame. Type is "state", "busy", "progress" or
// "notification"; Payload is the matching snapshot.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans store/busy/progress snapshots and notifications out to every
// connected UI. Slow clients are dropped rather than blocking the rest.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	// initial state pushed to new connections
	snapshotFn func() []Event
}

// New - hub; snapshotFn provides the catch-up frames sent to every client on
// connect, nil for none
func New(snapshotFn func() []Event) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		snapshotFn: snapshotFn,
	}
}

// SetSnapshotFn installs the catch-up frame source after construction. The
// hub is built before the store so the store's change callback can reach it.
func (h *Hub) SetSnapshotFn(fn func() []Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshotFn = fn
}

// Broadcast - encode once, send to everyone
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to encode %s event: %v", event.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, id)
			log.Printf("🔌 Dropped slow client %s", id)
		}
	}
}

// Notify implements the notifier interface over the broadcast channel
func (h *Hub) Notify(message string) {
	h.Broadcast(Event{Type: "notification", Payload: message})
}

// ClientCount - connected UI count
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and registers the client
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	c := &client{conn: conn, send: make(chan []byte, 256)}

	h.mu.RLock()
	snapshotFn := h.snapshotFn
	h.mu.RUnlock()

	// Queue catch-up frames before the pumps start so nothing can race the
	// channel close on disconnect.
	if snapshotFn != nil {
		for _, event := range snapshotFn() {
			if data, err := json.Marshal(event); err == nil {
				c.send <- data
			}
		}
	}

	h.mu.Lock()
	h.clients[id] = c
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("👤 UI client %s connected (clients: %d)", id, count)

	go c.writePump()
	go h.readPump(id, c)
}

// readPump discards inbound frames; the UI talks to the server over HTTP and
// only listens here. Reading is still required to notice disconnects.
func (h *Hub) readPump(id string, c *client) {
	defer func() {
		h.remove(id)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.send)
		delete(h.clients, id)
		log.Printf("👋 UI client %s disconnected (clients: %d)", id, len(h.clients))
	}
}
