// Package ws provides the authenticated WebSocket endpoint: chat over the
// socket, live settings pushes, and an admin activity feed.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/xdpzq/centralgpt/internal/auth"
	"github.com/xdpzq/centralgpt/internal/chat"
	"github.com/xdpzq/centralgpt/internal/event"
	"github.com/xdpzq/centralgpt/internal/history"
	"github.com/xdpzq/centralgpt/internal/settings"
	"go.uber.org/zap"
)

// readLimit bounds one inbound frame; chat requests may carry an image.
const readLimit = 20 << 20

// Chatter answers chat requests.
type Chatter interface {
	Send(ctx context.Context, claims *auth.Claims, req chat.Request) (*chat.Reply, error)
}

// Handler provides the WebSocket endpoint.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	chat   Chatter
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to bus events.
// bus may be nil.
func NewHandler(tokens *auth.TokenService, chatter Chatter, bus event.Subscriber, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		chat:   chatter,
		logger: logger,
	}
	h.subscribeToEvents(bus)
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws", h.handleStream)
}

// Hub returns the connection hub.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// handleStream upgrades the connection to WebSocket.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	// Validate JWT from query parameter (browser WS API doesn't support headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Allow any origin since we validate via JWT token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	client := &Client{
		conn:   conn,
		claims: claims,
		send:   make(chan Message, sendBuffer),
		logger: h.logger,
	}

	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readLoop blocks until the client disconnects.
	h.readLoop(ctx, client)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// readLoop handles client messages one at a time.
func (h *Handler) readLoop(ctx context.Context, c *Client) {
	for {
		var in ClientMessage
		if err := wsjson.Read(ctx, c.conn, &in); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch in.Type {
		case MessageChatRequest:
			h.hub.Send(c, h.answer(ctx, c.claims, in))
		default:
			h.hub.Send(c, Message{
				Type:      MessageError,
				RequestID: in.RequestID,
				Timestamp: time.Now().UTC(),
				Data:      ErrorData{Status: http.StatusBadRequest, Error: "unknown message type"},
			})
		}
	}
}

func (h *Handler) answer(ctx context.Context, claims *auth.Claims, in ClientMessage) Message {
	if claims.IsAdmin() {
		return errorMessage(in.RequestID, http.StatusForbidden, "the admin console has no chat persona")
	}

	reply, err := h.chat.Send(ctx, claims, chat.Request{Message: in.Message, Image: in.Image})
	if err != nil {
		status, detail := chat.StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("websocket chat failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return errorMessage(in.RequestID, status, detail)
	}
	return Message{
		Type:      MessageChatResponse,
		RequestID: in.RequestID,
		Timestamp: reply.Timestamp,
		Data:      reply,
	}
}

func errorMessage(requestID string, status int, detail string) Message {
	return Message{
		Type:      MessageError,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Data:      ErrorData{Status: status, Error: detail},
	}
}

// subscribeToEvents forwards settings changes to every client and chat
// activity to admin consoles.
func (h *Handler) subscribeToEvents(bus event.Subscriber) {
	if bus == nil {
		return
	}

	bus.Subscribe(event.TopicSettingsUpdated, func(_ context.Context, e event.Event) {
		cfg, ok := e.Payload.(settings.AppConfig)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageSettingsUpdated,
			Timestamp: e.Timestamp,
			Data:      cfg.Features(),
		})
	})

	bus.Subscribe(event.TopicChatCompleted, func(_ context.Context, e event.Event) {
		entry, ok := e.Payload.(history.Entry)
		if !ok {
			return
		}
		h.hub.BroadcastAdmins(Message{
			Type:      MessageChatCompleted,
			Timestamp: e.Timestamp,
			Data: ChatCompletedData{
				Username: entry.Username,
				AIName:   entry.AIName,
				Message:  entry.Message,
				HasImage: entry.Image != "",
			},
		})
	})

	h.logger.Debug("subscribed to settings and chat events for WebSocket broadcasting")
}
