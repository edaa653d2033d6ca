package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	inboundBuffer   = 256
	broadcastBuffer = 256
	clientBuffer    = 64
)

// Client is one connected map host.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub accepts map host connections, queues their inbound messages in arrival
// order and fans outbound messages out to every client.
type Hub struct {
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	inbound    chan Inbound
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. An empty AllowedOrigins list accepts any origin.
func NewHub(cfg config.ServerConfig, logger *slog.Logger, metrics *telemetry.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:     logger,
		metrics:    metrics,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		inbound:    make(chan Inbound, inboundBuffer),
		done:       make(chan struct{}),
	}

	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// Inbound returns decoded messages from all clients in arrival order.
func (h *Hub) Inbound() <-chan Inbound {
	return h.inbound
}

// Send encodes m and queues it for every connected client. Messages are
// dropped when the broadcast queue is full.
func (h *Hub) Send(m Outbound) error {
	data, err := EncodeOutbound(m)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		h.metrics.ObserveBridge("out", string(m.Type()))
	default:
		h.logger.Warn("broadcast queue full, dropping message", "type", m.Type())
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run services client registration and broadcast until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			h.logger.Info("bridge hub stopped", "reason", ctx.Err())
			return nil
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.setClientGauge(n)
			h.logger.Info("bridge client connected", "clients", n)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.setClientGauge(n)
			h.logger.Info("bridge client disconnected", "clients", n)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

func (h *Hub) setClientGauge(n int) {
	if h.metrics != nil {
		h.metrics.BridgeClients.Set(float64(n))
	}
}

func (h *Hub) broadcastToClients(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client, drop it
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.setClientGauge(0)
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err, "origin", r.Header.Get("Origin"))
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// deliver queues a decoded message, blocking while the queue is full.
func (h *Hub) deliver(m Inbound) bool {
	select {
	case h.inbound <- m:
		h.metrics.ObserveBridge("in", string(m.Type()))
		return true
	case <-h.done:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected websocket close", "err", err)
			}
			return
		}

		m, err := DecodeInbound(data)
		if err != nil {
			c.hub.logger.Warn("rejected bridge message", "err", err)
			if c.hub.metrics != nil {
				c.hub.metrics.BridgeRejected.Inc()
			}
			continue
		}
		if !c.hub.deliver(m) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
