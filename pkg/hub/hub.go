// Package hub fans stored messages out to live WebSocket sessions.
// Delivery is at most once per session and excludes the sender: the
// originating session gets an ack carrying the stored message instead of
// a second copy.
package hub

import (
	"encoding/json"

	"chathub/pkg/config"
	"chathub/pkg/errdefs"
	"chathub/pkg/logger"
	"chathub/pkg/models"
	"chathub/pkg/store"
	"chathub/pkg/translate"
	"chathub/pkg/validation"
)

// Hub coordinates the store, the session registry and the translator.
type Hub struct {
	Store      *store.Store
	Registry   *Registry
	Translator translate.Translator
	Cfg        config.HubConfig
}

// New builds a hub over an opened store.
func New(st *store.Store, tr translate.Translator, cfg config.HubConfig) *Hub {
	return &Hub{Store: st, Registry: NewRegistry(), Translator: tr, Cfg: cfg}
}

// SendMessage validates, persists and fans out one message. The stored
// message is returned so the transport can ack the sender; every other
// participant's sessions receive a message frame annotated for their
// preferred language.
func (h *Hub) SendMessage(senderID, convID, content string, msgType models.MessageType) (*models.Message, error) {
	lang := ""
	if senderID != models.SystemSender {
		if err := validation.Content(content, h.Cfg.MaxContentLen); err != nil {
			return nil, err
		}
		if err := validation.MessageType(msgType); err != nil {
			return nil, err
		}
		if u, err := h.Store.GetUser(senderID); err == nil {
			lang = u.PreferredLanguage
		}
	}
	m, err := h.Store.AppendMessage(convID, senderID, content, store.AppendOptions{Type: msgType, Language: lang})
	if err != nil {
		return nil, err
	}
	conv, err := h.Store.GetConversation(convID)
	if err != nil {
		return nil, err
	}
	h.fanOut(conv, m, senderID)
	return m, nil
}

// fanOut delivers a message frame to every participant except the
// excluded user. Slow sessions are skipped rather than blocked on.
func (h *Hub) fanOut(conv *models.Conversation, m *models.Message, excludeUserID string) {
	for _, p := range conv.Participants {
		if p == excludeUserID {
			continue
		}
		sessions := h.Registry.SessionsFor(p)
		if len(sessions) == 0 {
			continue
		}
		annotated := *m
		if h.Translator != nil {
			if u, err := h.Store.GetUser(p); err == nil {
				annotated = translate.Annotate(h.Translator, *m, u.PreferredLanguage)
			}
		}
		b, err := json.Marshal(ServerFrame{Type: FrameMessage, Message: &annotated})
		if err != nil {
			continue
		}
		for _, s := range sessions {
			if s.TrySend(b) {
				fanoutDelivered.Inc()
			} else {
				fanoutDropped.Inc()
				logger.Warn("fanout_dropped", "session", s.ID, "user", p, "conversation", conv.ID)
			}
		}
	}
}

// MarkRead files the receipt and pushes a status frame to the other
// participants' sessions.
func (h *Hub) MarkRead(userID, messageID string) (*models.Receipt, error) {
	r, m, err := h.Store.MarkRead(messageID, userID)
	if err != nil {
		return nil, err
	}
	conv, err := h.Store.GetConversation(m.ConversationID)
	if err != nil {
		return r, nil
	}
	frame, err := json.Marshal(ServerFrame{
		Type:           FrameStatus,
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		UserID:         userID,
		Read:           true,
	})
	if err != nil {
		return r, nil
	}
	for _, p := range conv.Participants {
		if p == userID {
			continue
		}
		for _, s := range h.Registry.SessionsFor(p) {
			if s.TrySend(frame) {
				fanoutDelivered.Inc()
			} else {
				fanoutDropped.Inc()
			}
		}
	}
	return r, nil
}

// Subscribe checks that the session's user belongs to the conversation.
// Delivery is user-addressed, so subscribing is a membership handshake
// rather than a routing requirement.
func (h *Hub) Subscribe(s *Session, convID string) error {
	conv, err := h.Store.GetConversation(convID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(s.UserID) {
		return errdefs.Authorizationf("user %s is not a participant of %s", s.UserID, convID)
	}
	s.subscribe(convID)
	return nil
}

// NotifySystem appends a system message (participant joined, renamed and
// so on) and fans it out to everyone in the conversation.
func (h *Hub) NotifySystem(convID, content string) (*models.Message, error) {
	return h.SendMessage(models.SystemSender, convID, content, models.TypeSystem)
}
