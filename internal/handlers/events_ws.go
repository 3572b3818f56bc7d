package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one entry on the live event stream
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Event types published on the stream
const (
	EventAlertIngested  = "alert.ingested"
	EventAlertDeduped   = "alert.deduplicated"
	EventGroupOpened    = "group.opened"
	EventGroupClosed    = "group.closed"
	EventRCAGenerated   = "rca.generated"
	EventRCAFailed      = "rca.failed"
	EventFeedbackStored = "feedback.recorded"
)

// EventHub fans correlation and RCA lifecycle events out to connected
// WebSocket clients. Slow or dead clients are dropped rather than allowed to
// stall the broadcast.
type EventHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewEventHub creates an event hub
func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // UI is served from the same deployment
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// HandleWS handles GET /ws/events
func (h *EventHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("Event stream client connected from %s (%d active)", r.RemoteAddr, count)

	// Reads are only used to detect disconnects
	go h.readLoop(conn)
}

func (h *EventHub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast sends one event to every connected client
func (h *EventHub) Broadcast(eventType string, payload interface{}) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("Dropping event stream client: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
