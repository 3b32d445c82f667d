package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chathub/pkg/auth"
	"chathub/pkg/errdefs"
	"chathub/pkg/logger"
	"chathub/pkg/utils"
)

const (
	writeWait      = 10 * time.Second
	maxFrameBytes  = 64 * 1024
	helloQueueSlot = 1
)

// Session is one live WebSocket connection for an authenticated user.
type Session struct {
	ID     string
	UserID string

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	subs   map[string]struct{}
	closed bool
}

// NewSession builds a session around an upgraded connection. Tests pass
// a nil conn and read frames straight off the send channel.
func NewSession(userID string, conn *websocket.Conn, sendBuffer int) *Session {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Session{
		ID:     utils.GenSessionID(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer+helloQueueSlot),
		subs:   make(map[string]struct{}),
	}
}

// TrySend queues a frame without blocking. It reports false when the
// session's buffer is full or the session is closed; the frame is then
// dropped for this session only.
func (s *Session) TrySend(b []byte) bool {
	// The queue attempt stays under the mutex so close cannot slip in
	// between the flag check and the send. The select never blocks, so
	// holding the lock here is cheap.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- b:
		return true
	default:
		return false
	}
}

func (s *Session) subscribe(convID string) {
	s.mu.Lock()
	s.subs[convID] = struct{}{}
	s.mu.Unlock()
}

// Subscribed reports whether the session completed the membership
// handshake for a conversation.
func (s *Session) Subscribed(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[convID]
	return ok
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	// Closing the channel under the same mutex keeps TrySend from ever
	// writing to a closed channel.
	close(s.send)
	s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin is enforced by the security middleware in front of the
	// upgrade handler.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the session until either side
// closes. The caller chain must have authenticated the request.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s := NewSession(userID, conn, h.Cfg.SendBuffer)
	h.Registry.Register(s)

	hello, _ := json.Marshal(ServerFrame{
		Type:             FrameHello,
		SessionID:        s.ID,
		HeartbeatMs:      h.Cfg.HeartbeatMs,
		ReconnectDelayMs: h.Cfg.ReconnectDelayMs,
	})
	s.TrySend(hello)

	go h.writePump(s)
	h.readPump(s)
}

func (h *Hub) readPump(s *Session) {
	defer func() {
		h.Registry.Unregister(s)
		s.close()
	}()
	heartbeat := time.Duration(h.Cfg.HeartbeatMs) * time.Millisecond
	s.conn.SetReadLimit(maxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(3 * heartbeat))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(3 * heartbeat))
	})
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws_read_error", "session", s.ID, "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(3 * heartbeat))
		h.dispatch(s, raw)
	}
}

func (h *Hub) writePump(s *Session) {
	heartbeat := time.Duration(h.Cfg.HeartbeatMs) * time.Millisecond
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		if s.conn != nil {
			_ = s.conn.Close()
		}
	}()
	for {
		select {
		case b, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one inbound frame. Request failures go back to the
// same session as error frames; they never tear the connection down.
func (h *Hub) dispatch(s *Session, raw []byte) {
	var f ClientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		s.sendError("", http.StatusBadRequest, "malformed frame")
		return
	}
	switch f.Type {
	case FrameSend:
		m, err := h.SendMessage(s.UserID, f.ConversationID, f.Content, f.MessageType)
		if err != nil {
			s.sendError(f.ClientRef, errdefs.HTTPStatus(err), err.Error())
			return
		}
		ack, _ := json.Marshal(ServerFrame{Type: FrameAck, Message: m, ClientRef: f.ClientRef})
		s.TrySend(ack)
	case FrameSubscribe:
		if err := h.Subscribe(s, f.ConversationID); err != nil {
			s.sendError(f.ClientRef, errdefs.HTTPStatus(err), err.Error())
			return
		}
		ack, _ := json.Marshal(ServerFrame{Type: FrameAck, ConversationID: f.ConversationID, ClientRef: f.ClientRef})
		s.TrySend(ack)
	case FrameMarkRead:
		if _, err := h.MarkRead(s.UserID, f.MessageID); err != nil {
			s.sendError(f.ClientRef, errdefs.HTTPStatus(err), err.Error())
			return
		}
		ack, _ := json.Marshal(ServerFrame{Type: FrameAck, MessageID: f.MessageID, ClientRef: f.ClientRef})
		s.TrySend(ack)
	case FramePing:
		pong, _ := json.Marshal(ServerFrame{Type: FramePong})
		s.TrySend(pong)
	default:
		s.sendError(f.ClientRef, http.StatusBadRequest, "unknown frame type "+f.Type)
	}
}

func (s *Session) sendError(clientRef string, code int, msg string) {
	b, _ := json.Marshal(ServerFrame{Type: FrameError, Code: code, Error: msg, ClientRef: clientRef})
	s.TrySend(b)
}
