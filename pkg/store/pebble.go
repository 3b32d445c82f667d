package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"chathub/pkg/errdefs"
	"chathub/pkg/logger"
	"chathub/pkg/models"
	"chathub/pkg/utils"
)

// Store is the authoritative registry of users, conversations and
// messages, backed by a Pebble database. It is safe for concurrent use;
// appends to one conversation serialize on that conversation's lock so
// identifier and timestamp assignment stay monotonic, while appends to
// unrelated conversations proceed in parallel.
type Store struct {
	db   *pebble.DB
	path string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	lastTS map[string]int64
	seq    uint64
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{
		db:     db,
		path:   path,
		locks:  make(map[string]*sync.Mutex),
		lastTS: make(map[string]int64),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	logger.Info("pebble_closed")
	return err
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool { return s != nil && s.db != nil }

// lockFor returns the append lock for a conversation, creating it lazily.
func (s *Store) lockFor(convID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[convID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[convID] = l
	}
	return l
}

func (s *Store) get(key string) ([]byte, error) {
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, nil
}

// --- Users ---

// CreateUser registers a new account. The username index is
// case-insensitive; a duplicate registration fails validation.
func (s *Store) CreateUser(username, displayName, preferredLanguage, passwordHash string) (*models.User, error) {
	name := utils.NormalizeUsername(username)
	if name == "" {
		return nil, errdefs.Validationf("username is required")
	}
	if preferredLanguage == "" {
		preferredLanguage = "en"
	}
	if _, err := s.get(userNameKey(name)); err == nil {
		return nil, errdefs.Validationf("username %q is taken", name)
	}
	u := &models.User{
		ID:                utils.GenUserID(),
		Username:          name,
		DisplayName:       displayName,
		PreferredLanguage: preferredLanguage,
		PasswordHash:      passwordHash,
		CreatedTS:         time.Now().UTC().UnixNano(),
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}
	wb := s.db.NewBatch()
	_ = wb.Set([]byte(userKey(u.ID)), b, nil)
	_ = wb.Set([]byte(userNameKey(name)), []byte(u.ID), nil)
	if err := s.db.Apply(wb, pebble.Sync); err != nil {
		logger.Error("save_user_failed", "user", u.ID, "error", err)
		return nil, err
	}
	usersCreated.Inc()
	logger.Info("user_created", "user", u.ID, "username", name)
	return u, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(id string) (*models.User, error) {
	b, err := s.get(userKey(id))
	if err != nil {
		return nil, errdefs.NotFoundf("user %s", id)
	}
	var u models.User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("invalid stored user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername loads a user through the username index.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	id, err := s.get(userNameKey(utils.NormalizeUsername(username)))
	if err != nil {
		return nil, errdefs.NotFoundf("user %q", username)
	}
	return s.GetUser(string(id))
}

// SetPreferredLanguage updates the mutable language preference.
func (s *Store) SetPreferredLanguage(userID, lang string) (*models.User, error) {
	if lang == "" {
		return nil, errdefs.Validationf("language is required")
	}
	u, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	u.PreferredLanguage = lang
	b, _ := json.Marshal(u)
	if err := s.db.Set([]byte(userKey(u.ID)), b, pebble.Sync); err != nil {
		return nil, err
	}
	logger.Info("user_language_updated", "user", u.ID, "language", lang)
	return u, nil
}

// --- Conversations ---

// CreateConversation creates a conversation over the given participant
// ids. An explicit kind wins; when kind is empty it is inferred from the
// participant count (legacy client behavior). Direct conversations must
// have exactly two participants.
func (s *Store) CreateConversation(participantIDs []string, kind models.ConversationKind, name string) (*models.Conversation, error) {
	// dedupe preserving insertion order
	seen := make(map[string]struct{}, len(participantIDs))
	var parts []string
	for _, p := range participantIDs {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, errdefs.Validationf("participant list is empty")
	}
	for _, p := range parts {
		if _, err := s.get(userKey(p)); err != nil {
			return nil, errdefs.Validationf("unknown participant %s", p)
		}
	}
	if kind == "" {
		kind = models.KindForCount(len(parts))
	}
	if kind == models.KindDirect && len(parts) != 2 {
		return nil, errdefs.Validationf("direct conversation requires exactly two participants")
	}
	if kind != models.KindDirect && kind != models.KindGroup {
		return nil, errdefs.Validationf("unknown conversation kind %q", kind)
	}
	if kind == models.KindDirect {
		name = ""
	}
	c := &models.Conversation{
		ID:           utils.GenConvID(),
		Kind:         kind,
		Name:         name,
		Participants: parts,
		CreatedTS:    time.Now().UTC().UnixNano(),
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	wb := s.db.NewBatch()
	_ = wb.Set([]byte(convKey(c.ID)), b, nil)
	for _, p := range parts {
		_ = wb.Set([]byte(userConvKey(p, c.ID)), nil, nil)
	}
	if err := s.db.Apply(wb, pebble.Sync); err != nil {
		logger.Error("save_conversation_failed", "conversation", c.ID, "error", err)
		return nil, err
	}
	conversationsCreated.Inc()
	logger.Info("conversation_created", "conversation", c.ID, "kind", string(kind), "participants", len(parts))
	return c, nil
}

// GetConversation loads a conversation by id.
func (s *Store) GetConversation(id string) (*models.Conversation, error) {
	b, err := s.get(convKey(id))
	if err != nil {
		return nil, errdefs.NotFoundf("conversation %s", id)
	}
	var c models.Conversation
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("invalid stored conversation: %w", err)
	}
	return &c, nil
}

// AddParticipant appends a user to the conversation's participant set.
// Adding an existing participant is a no-op.
func (s *Store) AddParticipant(convID, userID string) (*models.Conversation, error) {
	if _, err := s.get(userKey(userID)); err != nil {
		return nil, errdefs.NotFoundf("user %s", userID)
	}
	lock := s.lockFor(convID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.GetConversation(convID)
	if err != nil {
		return nil, err
	}
	if c.HasParticipant(userID) {
		return c, nil
	}
	c.Participants = append(c.Participants, userID)
	if c.Kind == models.KindDirect {
		// a direct conversation outgrowing two members becomes a group
		c.Kind = models.KindGroup
	}
	b, _ := json.Marshal(c)
	wb := s.db.NewBatch()
	_ = wb.Set([]byte(convKey(c.ID)), b, nil)
	_ = wb.Set([]byte(userConvKey(userID, c.ID)), nil, nil)
	if err := s.db.Apply(wb, pebble.Sync); err != nil {
		return nil, err
	}
	logger.Info("participant_added", "conversation", c.ID, "user", userID)
	return c, nil
}

// ListConversationsForUser returns every conversation the user belongs
// to, each annotated with its most recent message summary.
func (s *Store) ListConversationsForUser(userID string) ([]models.ConversationSummary, error) {
	prefix := []byte(userConvPrefix(userID))
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]models.ConversationSummary, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		convID := string(iter.Key()[len(prefix):])
		c, err := s.GetConversation(convID)
		if err != nil {
			continue
		}
		sum := models.ConversationSummary{Conversation: *c}
		if last, err := s.lastMessage(convID); err == nil && last != nil {
			sum.LastMessage = &models.MessageSummary{SenderID: last.SenderID, Content: last.Content, TS: last.TS}
			sum.LastMessageTS = last.TS
		}
		out = append(out, sum)
	}
	return out, nil
}

// lastMessage returns the newest non-deleted message of a conversation,
// or nil when the conversation is empty.
func (s *Store) lastMessage(convID string) (*models.Message, error) {
	prefix := []byte(convMsgPrefix(convID))
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for iter.Last(); iter.Valid(); iter.Prev() {
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		if m.Deleted {
			continue
		}
		return &m, nil
	}
	return nil, nil
}

// --- Messages ---

// AppendOptions carries optional attributes for AppendMessage.
type AppendOptions struct {
	Type     models.MessageType
	Language string
}

// AppendMessage creates and stores a new message with a freshly issued
// monotonic identifier and the current server timestamp. The sender must
// be a participant unless it is the system sentinel.
func (s *Store) AppendMessage(convID, senderID, content string, opts AppendOptions) (*models.Message, error) {
	if content == "" {
		return nil, errdefs.Validationf("message content is empty")
	}

	lock := s.lockFor(convID)
	lock.Lock()
	defer lock.Unlock()

	// Read the conversation under the lock so a concurrent AddParticipant
	// is neither missed by the membership check nor clobbered by the
	// LastMessageTS rewrite below.
	c, err := s.GetConversation(convID)
	if err != nil {
		return nil, err
	}
	// Only the system sentinel bypasses membership; a client-supplied
	// system message type carries no privilege.
	isSystem := senderID == models.SystemSender
	if !isSystem && !c.HasParticipant(senderID) {
		return nil, errdefs.Authorizationf("user %s is not a participant of %s", senderID, convID)
	}
	if opts.Type == "" {
		opts.Type = models.TypeText
	}

	// Monotonic timestamp per conversation even when the wall clock
	// stalls or steps backwards.
	ts := time.Now().UTC().UnixNano()
	s.mu.Lock()
	if last := s.lastTS[convID]; ts <= last {
		ts = last + 1
	}
	s.lastTS[convID] = ts
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	m := &models.Message{
		ID:             msgID(ts, seq),
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		TS:             ts,
		Type:           opts.Type,
		IsSystem:       isSystem,
		Language:       opts.Language,
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	c.LastMessageTS = ts
	cb, _ := json.Marshal(c)

	wb := s.db.NewBatch()
	_ = wb.Set([]byte(convMsgKey(convID, m.ID)), b, nil)
	_ = wb.Set([]byte(msgLatestKey(m.ID)), b, nil)
	_ = wb.Set([]byte(convKey(convID)), cb, nil)
	if err := s.db.Apply(wb, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "conversation", convID, "id", m.ID, "error", err)
		return nil, err
	}
	messagesAppended.Inc()
	logger.Info("message_saved", "conversation", convID, "id", m.ID, "sender", senderID)
	return m, nil
}

// ListMessages returns one page of a conversation's messages in ascending
// append order. The returned cursor restarts the scan after the last
// message of the page; it is empty when the page was not full.
func (s *Store) ListMessages(convID, cursor string, limit int) ([]models.Message, string, error) {
	if _, err := s.get(convKey(convID)); err != nil {
		return nil, "", errdefs.NotFoundf("conversation %s", convID)
	}
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = 50
	}

	prefix := []byte(convMsgPrefix(convID))
	lower := prefix
	if after != "" {
		// seek just past the cursor position
		lower = append([]byte(convMsgKey(convID, after)), 0x00)
	}
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, "", err
	}
	defer iter.Close()

	out := make([]models.Message, 0, limit)
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("skip_invalid_message", "key", string(iter.Key()))
			continue
		}
		if m.Deleted {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	next := ""
	if len(out) == limit {
		next = EncodeCursor(out[len(out)-1].ID)
	}
	return out, next, nil
}

// GetMessage loads the latest copy of a message by id.
func (s *Store) GetMessage(id string) (*models.Message, error) {
	b, err := s.get(msgLatestKey(id))
	if err != nil {
		return nil, errdefs.NotFoundf("message %s", id)
	}
	var m models.Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("invalid stored message: %w", err)
	}
	return &m, nil
}

// writeMessage rewrites a message under both its conversation key and its
// latest-copy index.
func (s *Store) writeMessage(m *models.Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	wb := s.db.NewBatch()
	_ = wb.Set([]byte(convMsgKey(m.ConversationID, m.ID)), b, nil)
	_ = wb.Set([]byte(msgLatestKey(m.ID)), b, nil)
	return s.db.Apply(wb, pebble.Sync)
}

// DeleteMessage soft-deletes a message. Only the original sender may
// delete; retention purges tombstones later.
func (s *Store) DeleteMessage(msgID, userID string) error {
	m, err := s.GetMessage(msgID)
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return errdefs.Authorizationf("user %s did not send message %s", userID, msgID)
	}
	if m.Deleted {
		return nil
	}
	m.Deleted = true
	if err := s.writeMessage(m); err != nil {
		return err
	}
	logger.Info("message_deleted", "conversation", m.ConversationID, "id", m.ID)
	return nil
}

// --- Read receipts ---

// MarkRead files a per-recipient read receipt and flips the message's
// read flag. Filing the same receipt twice returns the original.
func (s *Store) MarkRead(msgID, userID string) (*models.Receipt, *models.Message, error) {
	m, err := s.GetMessage(msgID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.GetConversation(m.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, nil, errdefs.Authorizationf("user %s is not a participant of %s", userID, c.ID)
	}

	key := receiptKey(m.ConversationID, m.ID, userID)
	if b, err := s.get(key); err == nil {
		var r models.Receipt
		if json.Unmarshal(b, &r) == nil {
			return &r, m, nil
		}
	}
	r := &models.Receipt{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		UserID:         userID,
		ReadTS:         time.Now().UTC().UnixNano(),
	}
	rb, _ := json.Marshal(r)
	if err := s.db.Set([]byte(key), rb, pebble.Sync); err != nil {
		return nil, nil, err
	}
	if !m.Read {
		m.Read = true
		if err := s.writeMessage(m); err != nil {
			return nil, nil, err
		}
	}
	logger.Info("message_read", "conversation", m.ConversationID, "id", m.ID, "user", userID)
	return r, m, nil
}

// --- Retention ---

// PurgeDeleted removes up to batchSize soft-deleted messages older than
// olderThanTS along with their receipts and latest-copy index entries.
// It returns how many messages were purged. Dry runs only count.
func (s *Store) PurgeDeleted(olderThanTS int64, batchSize int, dryRun bool) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(convPrefix),
		UpperBound: []byte(convPrefix + "\xff"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	purged := 0
	wb := s.db.NewBatch()
	for iter.First(); iter.Valid() && purged < batchSize; iter.Next() {
		if !bytes.Contains(iter.Key(), []byte(":msg:")) {
			continue
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		if !m.Deleted || m.TS >= olderThanTS {
			continue
		}
		purged++
		if dryRun {
			continue
		}
		_ = wb.Delete(iter.Key(), nil)
		_ = wb.Delete([]byte(msgLatestKey(m.ID)), nil)
		// receipts for this message
		rp := []byte(receiptPrefix + m.ConversationID + ":" + m.ID + ":")
		rIter, rerr := s.db.NewIter(&pebble.IterOptions{LowerBound: rp, UpperBound: append(append([]byte(nil), rp...), 0xff)})
		if rerr == nil {
			for rIter.First(); rIter.Valid(); rIter.Next() {
				_ = wb.Delete(rIter.Key(), nil)
			}
			_ = rIter.Close()
		}
	}
	if dryRun || purged == 0 {
		_ = wb.Close()
		return purged, nil
	}
	if err := s.db.Apply(wb, pebble.Sync); err != nil {
		return 0, err
	}
	messagesPurged.Add(float64(purged))
	logger.Info("retention_purged", "count", purged)
	return purged, nil
}
