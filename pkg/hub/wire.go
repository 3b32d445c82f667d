package hub

import "chathub/pkg/models"

// Frame types exchanged over the socket. Clients send send, subscribe,
// markRead and ping; the server answers with hello, message, ack,
// status, error and pong.
const (
	FrameSend      = "send"
	FrameSubscribe = "subscribe"
	FrameMarkRead  = "markRead"
	FramePing      = "ping"

	FrameHello   = "hello"
	FrameMessage = "message"
	FrameAck     = "ack"
	FrameStatus  = "status"
	FrameError   = "error"
	FramePong    = "pong"
)

// ClientFrame is one inbound frame. Fields beyond Type are read
// depending on the frame type.
type ClientFrame struct {
	Type           string             `json:"type"`
	ConversationID string             `json:"conversationId,omitempty"`
	Content        string             `json:"content,omitempty"`
	MessageType    models.MessageType `json:"messageType,omitempty"`
	MessageID      string             `json:"messageId,omitempty"`
	// ClientRef is an opaque client correlation id echoed back on the
	// ack or error for this frame.
	ClientRef string `json:"clientRef,omitempty"`
}

// ServerFrame is one outbound frame.
type ServerFrame struct {
	Type           string          `json:"type"`
	Message        *models.Message `json:"message,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	MessageID      string          `json:"messageId,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	Read           bool            `json:"read,omitempty"`
	Code           int             `json:"code,omitempty"`
	Error          string          `json:"error,omitempty"`
	ClientRef      string          `json:"clientRef,omitempty"`

	// hello payload
	SessionID        string `json:"sessionId,omitempty"`
	HeartbeatMs      int    `json:"heartbeatMs,omitempty"`
	ReconnectDelayMs int    `json:"reconnectDelayMs,omitempty"`
}
