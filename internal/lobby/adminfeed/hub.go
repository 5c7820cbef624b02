// Package adminfeed is an optional, read-only WebSocket feed of Lobby
// room lifecycle events for operator dashboards. It never influences
// client-observable protocol behavior (SPEC_FULL.md §4.4): clients
// still only learn about state changes by polling. Grounded in
// cmd/server/main.go's register/unregister hub and
// writePump/readPump client goroutines, adapted from broadcasting MUD
// text to broadcasting room-event JSON.
package adminfeed

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one connected dashboard viewer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks every connected dashboard viewer and fans out Broadcast
// calls to all of them.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
}

// NewHub returns a Hub ready for Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		shutdown:   make(chan struct{}),
	}
}

// Run processes registrations until Shutdown is called. It must run
// in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			log.Printf("adminfeed: viewer connected, total=%d", len(h.clients))

		case c := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			log.Printf("adminfeed: viewer disconnected, total=%d", len(h.clients))

		case <-h.shutdown:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Shutdown closes every connected viewer's send channel and stops Run.
func (h *Hub) Shutdown() {
	close(h.shutdown)
}

// Broadcast fans event (typically {"event": "...", ...fields}) out to
// every connected viewer as JSON text. Slow viewers are dropped rather
// than allowed to block publishers.
func (h *Hub) Broadcast(raw []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			log.Printf("adminfeed: viewer send buffer full, dropping event")
		}
	}
}

// ServeWS upgrades r to a WebSocket and registers the resulting
// viewer, matching Server.handleWebSocket in cmd/server/main.go.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("adminfeed: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// readPump discards any inbound traffic (the feed is read-only) and
// exists only to detect the viewer disconnecting.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.shutdown:
		}
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
