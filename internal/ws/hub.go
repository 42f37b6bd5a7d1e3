package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/xdpzq/centralgpt/internal/auth"
	"go.uber.org/zap"
)

// sendBuffer is the per-client outbound queue length.
const sendBuffer = 64

// Client represents a connected WebSocket client.
type Client struct {
	conn   *websocket.Conn
	claims *auth.Claims
	send   chan Message
	logger *zap.Logger
}

func (c *Client) userID() string { return c.claims.UserID }

// Hub manages active WebSocket connections and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	activeConnections.Inc()
	h.logger.Debug("websocket client connected", zap.String("user_id", c.userID()))
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		activeConnections.Dec()
	}
	h.logger.Debug("websocket client disconnected", zap.String("user_id", c.userID()))
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	h.broadcastIf(msg, func(*Client) bool { return true })
}

// BroadcastAdmins sends a message to clients holding admin sessions.
func (h *Hub) BroadcastAdmins(msg Message) {
	h.broadcastIf(msg, func(c *Client) bool { return c.claims.IsAdmin() })
}

// Send queues a message for one client. It is dropped when the client has
// left or its buffer is full.
func (h *Hub) Send(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.enqueue(c, msg)
	}
}

func (h *Hub) broadcastIf(msg Message, match func(*Client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if match(c) {
			h.enqueue(c, msg)
		}
	}
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(c *Client, msg Message) {
	select {
	case c.send <- msg:
	default:
		droppedMessages.Inc()
		h.logger.Warn("client send buffer full, dropping message",
			zap.String("user_id", c.userID()),
			zap.String("type", string(msg.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump sends messages from the client's send channel to the WebSocket.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				// Channel closed by hub (unregister).
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				c.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		}
	}
}
