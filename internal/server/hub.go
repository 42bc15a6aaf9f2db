package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"idleforge/internal/event"
)

// Message is the JSON envelope for every fact pushed over the feed.
type Message struct {
	Type    string `json:"type"` // "balance_changed", "milestone_fired"
	Payload any    `json:"payload"`
}

// Client is one connected feed subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans published ledger facts out to websocket subscribers. The core
// stays synchronous; only this outer feed is asynchronous.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:    map[*Client]bool{},
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Attach subscribes the hub to the session bus so balance and milestone
// facts reach connected clients.
func (h *Hub) Attach(bus *event.Bus) {
	bus.Subscribe(event.TypeBalanceChanged, func(payload any) {
		h.Broadcast(Message{Type: "balance_changed", Payload: payload})
	})
	bus.Subscribe(event.TypeMilestoneFired, func(payload any) {
		h.Broadcast(Message{Type: "milestone_fired", Payload: payload})
	})
}

func (h *Hub) Broadcast(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("feed marshal: %v", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		// Feed is best-effort; drop rather than block the core.
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades a request onto the feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws upgrade: %v", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump drains the connection so control frames are processed and
// disconnects are noticed. The feed is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
