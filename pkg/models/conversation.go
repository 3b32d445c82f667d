package models

// ConversationKind distinguishes two-party conversations from groups.
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// Conversation groups an ordered set of participants and their messages.
// Participants is insertion-ordered and append-only; a direct conversation
// has exactly two participants.
type Conversation struct {
	ID   string           `json:"id"`
	Kind ConversationKind `json:"kind"`
	// Name is only meaningful for group conversations.
	Name          string   `json:"name,omitempty"`
	Participants  []string `json:"participants"`
	CreatedTS     int64    `json:"created_ts"`
	LastMessageTS int64    `json:"last_message_ts,omitempty"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// KindForCount infers a conversation kind from the participant count. This
// is the legacy fallback only; an explicit kind always wins.
func KindForCount(n int) ConversationKind {
	if n == 2 {
		return KindDirect
	}
	return KindGroup
}

// MessageSummary is the last-message annotation attached to conversation
// list entries for list-view rendering.
type MessageSummary struct {
	SenderID string `json:"senderId,omitempty"`
	Content  string `json:"content,omitempty"`
	TS       int64  `json:"timestamp,omitempty"`
}

// ConversationSummary is a conversation annotated with its most recent
// message, as returned by the conversation list endpoint.
type ConversationSummary struct {
	Conversation
	LastMessage *MessageSummary `json:"lastMessage,omitempty"`
}
