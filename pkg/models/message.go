package models

// MessageType mirrors the client-visible message kinds.
type MessageType string

const (
	TypeText   MessageType = "TEXT"
	TypeImage  MessageType = "IMAGE"
	TypeFile   MessageType = "FILE"
	TypeSystem MessageType = "SYSTEM"
)

// TranslationStatus tracks the per-recipient translation annotation.
type TranslationStatus string

const (
	TranslationPending   TranslationStatus = "PENDING"
	TranslationCompleted TranslationStatus = "COMPLETED"
	TranslationFailed    TranslationStatus = "FAILED"
	TranslationNotNeeded TranslationStatus = "NOT_NEEDED"
)

// Message is one stored chat message. IDs are monotonic within a
// conversation: `<padded-unix-nano>-<padded-seq>`, assigned under the
// conversation's append lock, so lexicographic order is append order.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
	// TS is the server-assigned timestamp (ns). Display order is TS,
	// ties broken by ID.
	TS       int64       `json:"timestamp"`
	Type     MessageType `json:"messageType,omitempty"`
	IsSystem bool        `json:"isSystem,omitempty"`
	// Language the content was written in (the sender's preferred
	// language at send time).
	Language string `json:"language,omitempty"`
	// Translation annotation, attached per recipient during fan-out.
	// Translation itself is an external concern.
	OriginalContent   string            `json:"originalContent,omitempty"`
	OriginalLanguage  string            `json:"originalLanguage,omitempty"`
	TranslationStatus TranslationStatus `json:"translationStatus,omitempty"`
	// Read is set once any recipient files a read receipt.
	Read bool `json:"read,omitempty"`
	// Deleted marks a soft-deleted message; retention purges these.
	Deleted bool `json:"deleted,omitempty"`
}

// Receipt records that a participant read a message.
type Receipt struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	ReadTS         int64  `json:"read_ts"`
}
