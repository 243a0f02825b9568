package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"

	"intake-app/notify"
	"intake-app/scan"
)

// client wraps a WebSocket connection with a mutex for thread-safe writes.
type client struct {
	conn *gws.Conn
	mu   sync.Mutex
}

// Hub pushes scan-session events and notices to connected UI observers.
// The feed is strictly one-way: observers render, they never mutate.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// SessionEvent implements scan.Observer.
func (h *Hub) SessionEvent(ev scan.Event) {
	h.broadcast(map[string]any{"kind": "session", "event": ev})
}

// Notify implements notify.Notifier so toasts reach live observers too.
func (h *Hub) Notify(n notify.Notice) {
	h.broadcast(map[string]any{"kind": "notice", "notice": n})
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (h *Hub) broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := c.conn.WriteMessage(gws.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.unregister(c)
		}
	}
}

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client hangs up. Inbound messages are drained and ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn}
	h.register(c)

	go func() {
		defer h.unregister(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Listen runs the feed on its own listener. The Fiber app speaks fasthttp,
// so the gorilla upgrader gets a plain net/http server instead.
func (h *Hub) Listen(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	return http.ListenAndServe(addr, mux)
}
