package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"weave/internal/eventbus"
	"weave/pkg/broadcast"
)

// Message types the hub emits — a diagnostic tap onto execution and
// service-state events, not a full per-node visual-debugger protocol.
const (
	MsgTypeExecStarted    = "exec.started"
	MsgTypeExecSuspended  = "exec.suspended"
	MsgTypeExecCompleted  = "exec.completed"
	MsgTypeExecFailed     = "exec.failed"
	MsgTypeServiceChanged = "service.state_changed"
	MsgTypeBusEvent       = "bus.event"
)

// Message is the envelope every WebSocket frame carries.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// This is a local debug surface, not a public endpoint; the host
	// is expected to bind it to localhost or behind its own auth.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans Message broadcasts out to every connected WebSocket client:
// a client registry plus register/unregister/broadcast channels
// drained by one run() goroutine. Broadcast-only — this tap is
// read-only, clients don't issue commands back over the socket.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	register   chan *client
	unregister chan *client
	broadcast  chan Message
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	h := &Hub{
		clients:    map[string]*client{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, 64),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			raw, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- raw:
				default:
					// client too slow to keep up; drop it rather than
					// block the whole hub on one stuck socket.
					go func(c *client) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast enqueues msg for every connected client. Non-blocking: a
// full broadcast channel drops the message rather than stalling the
// caller (the caller is usually an execution hot path).
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	select {
	case h.broadcast <- Message{Type: msgType, Payload: payload}:
	default:
	}
}

// RelayBusEvents subscribes to bus and forwards every event it sees as
// a MsgTypeBusEvent frame until stop is closed (checked between
// received events) or the bus closes. Intended to be run in its own
// goroutine by the host.
func (h *Hub) RelayBusEvents(bus *eventbus.Bus, stop <-chan struct{}) {
	sub := bus.Subscribe()
	for {
		select {
		case <-stop:
			return
		default:
		}
		ev, err := sub.Recv()
		if err != nil {
			if _, closed := err.(broadcast.Closed); closed {
				return
			}
			// Lagged: some events were dropped for this subscriber,
			// but the bus is still live — keep relaying.
			continue
		}
		h.Broadcast(MsgTypeBusEvent, ev)
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 32)}
	h.register <- c
	go h.writePump(c)
	go h.readPump(c)
}

// readPump drains (and discards) client frames purely to notice
// disconnects — this tap does not accept commands from clients.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
