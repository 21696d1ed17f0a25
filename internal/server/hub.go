package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Buffered events per client before it counts as slow.
	sendBuffer = 64
)

// Progress event names.
const (
	EventGeneration = "generation"
	EventFinished   = "finished"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is one progress message sent to websocket subscribers.
type Event struct {
	OptimizationID string      `json:"optimization_id"`
	Event          string      `json:"event"`
	Data           interface{} `json:"data,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans optimization progress out to websocket clients grouped by
// optimization id. All client bookkeeping happens on the Run goroutine.
// A finished event closes the id's clients and is replayed to anyone who
// subscribes later.
type Hub struct {
	logger Logger

	subscribers map[string]map[*client]bool
	finished    map[string][]byte
	broadcast   chan *Event
	register    chan *client
	unregister  chan *client
	done        chan struct{}
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(logger Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[string]map[*client]bool),
		finished:    make(map[string][]byte),
		broadcast:   make(chan *Event, 256),
		register:    make(chan *client),
		unregister:  make(chan *client),
		done:        make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case ev := <-h.broadcast:
			h.broadcastEvent(ev)

		case <-ctx.Done():
			for _, clients := range h.subscribers {
				for c := range clients {
					h.unregisterClient(c)
				}
			}
			return
		}
	}
}

// Broadcast queues ev for subscribers of ev.OptimizationID. Events are
// dropped once the hub has stopped.
func (h *Hub) Broadcast(ev *Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// ServeWS upgrades the request and subscribes the connection to id.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, id string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   id,
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) registerClient(c *client) {
	if data, ok := h.finished[c.id]; ok {
		c.send <- data
		close(c.send)
		return
	}
	if h.subscribers[c.id] == nil {
		h.subscribers[c.id] = make(map[*client]bool)
	}
	h.subscribers[c.id][c] = true

	h.logger.Debug("WebSocket client registered", map[string]interface{}{
		"optimization_id": c.id,
		"clients":         len(h.subscribers[c.id]),
	})
}

func (h *Hub) unregisterClient(c *client) {
	clients, ok := h.subscribers[c.id]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.subscribers, c.id)
	}

	h.logger.Debug("WebSocket client unregistered", map[string]interface{}{
		"optimization_id": c.id,
		"clients":         len(clients),
	})
}

func (h *Hub) broadcastEvent(ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to marshal event", map[string]interface{}{"error": err.Error()})
		return
	}
	final := ev.Event == EventFinished
	if final {
		h.finished[ev.OptimizationID] = data
	}

	for c := range h.subscribers[ev.OptimizationID] {
		select {
		case c.send <- data:
			if final {
				h.unregisterClient(c)
			}
		default:
			// slow client
			h.unregisterClient(c)
		}
	}
}

// readPump discards client messages and keeps the read deadline fresh.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

// writePump writes one frame per event and pings on pingPeriod.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
