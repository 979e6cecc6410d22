package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leafsii/crypto-tracker/internal/metrics"
	"github.com/leafsii/crypto-tracker/internal/store"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 32
)

// Hub fans table updates out to WebSocket clients.
type Hub struct {
	cache    *store.Cache
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool
	// set once relay has ended; later connections are refused
	closed bool
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]bool
}

// Message is the envelope written to clients.
type Message struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// SubscriptionRequest is sent by clients to change their topics.
type SubscriptionRequest struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

func NewHub(cache *store.Cache, allowedOrigins []string, logger *zap.SugaredLogger, m *metrics.Metrics) *Hub {
	h := &Hub{
		cache:   cache,
		logger:  logger,
		metrics: m,
		clients: make(map[*Client]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowedOrigins)
		},
	}
	return h
}

// originAllowed accepts same-origin requests (no Origin header), listed
// origins and the "*" wildcard.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// Run relays cache pub/sub messages to clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Infow("WebSocket hub started", "channel", store.ChannelTable, "inMemory", h.cache.IsInMemoryMode())
	h.relay(ctx, h.cache.Subscribe(ctx, store.ChannelTable))
}

func (h *Hub) relay(ctx context.Context, sub *store.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Infow("WebSocket hub shutting down")
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}

func encode(topic string, payload []byte) ([]byte, error) {
	return json.Marshal(Message{
		Type:      "update",
		Topic:     topic,
		Data:      json.RawMessage(payload),
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) broadcast(topic string, payload []byte) {
	out, err := encode(topic, payload)
	if err != nil {
		h.logger.Errorw("Failed to marshal WebSocket message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.isSubscribed(topic) {
			continue
		}
		select {
		case c.send <- out:
		default:
			// Slow client; drop it rather than block every other reader.
			h.removeLocked(c)
		}
	}
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.IncrementConnections(context.Background(), "ws")
	h.logger.Debugw("Client registered", "clients", n)
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.DecrementConnections(context.Background(), "ws")
	h.logger.Debugw("Client unregistered", "clients", len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and subscribes the client to table
// updates. The latest cached table, if any, is sent right away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: map[string]bool{store.ChannelTable: true},
	}

	var latest json.RawMessage
	if err := h.cache.GetTable(r.Context(), &latest); err == nil {
		if out, err := encode(store.ChannelTable, latest); err == nil {
			c.send <- out
		}
	} else if !errors.Is(err, store.ErrCacheMiss) {
		h.logger.Warnw("Failed to read latest table", "error", err)
	}

	if !h.add(c) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnw("WebSocket read error", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON envelope per frame so clients can parse each frame.
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

func (c *Client) handleMessage(message []byte) {
	var req SubscriptionRequest
	if err := json.Unmarshal(message, &req); err != nil {
		c.hub.logger.Debugw("Invalid subscription message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch req.Type {
	case "subscribe":
		for _, t := range req.Topics {
			c.topics[t] = true
		}
	case "unsubscribe":
		for _, t := range req.Topics {
			delete(c.topics, t)
		}
	default:
		return
	}
	c.hub.logger.Debugw("Client topics changed", "type", req.Type, "topics", req.Topics)
}

func (c *Client) isSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic]
}
