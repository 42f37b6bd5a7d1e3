package ws

import (
	"time"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	// Server to client.
	MessageSettingsUpdated MessageType = "settings.updated"
	MessageChatResponse    MessageType = "chat.response"
	MessageChatCompleted   MessageType = "chat.completed"
	MessageError           MessageType = "error"

	// Client to server.
	MessageChatRequest MessageType = "chat.request"
)

// Message is the envelope for all server-sent WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// ClientMessage is a message received from a client.
type ClientMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Message   string      `json:"message"`
	Image     string      `json:"image,omitempty"`
}

// ErrorData is the payload for error messages.
type ErrorData struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// ChatCompletedData is the payload pushed to admin consoles for every
// completed exchange.
type ChatCompletedData struct {
	Username string `json:"username"`
	AIName   string `json:"ai_name"`
	Message  string `json:"message"`
	HasImage bool   `json:"has_image"`
}
