package store

import (
	"errors"
	"sync"
	"testing"

	"chathub/pkg/errdefs"
	"chathub/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	u, err := s.CreateUser(name, name, "en", "x")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := openTestStore(t)
	mustUser(t, s, "alice")
	if _, err := s.CreateUser("Alice", "Alice", "fr", "x"); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error for duplicate username, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	s := openTestStore(t)
	u := mustUser(t, s, "bob")
	got, err := s.GetUserByUsername("BOB")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, got.ID)
	}
}

func TestCreateConversationKinds(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	c := mustUser(t, s, "c")

	direct, err := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	if err != nil {
		t.Fatalf("create direct: %v", err)
	}
	if direct.Kind != models.KindDirect {
		t.Fatalf("expected direct kind, got %s", direct.Kind)
	}

	group, err := s.CreateConversation([]string{a.ID, b.ID, c.ID}, "", "team")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if group.Kind != models.KindGroup {
		t.Fatalf("expected group kind, got %s", group.Kind)
	}
	if group.Name != "team" {
		t.Fatalf("expected group name kept, got %q", group.Name)
	}

	if _, err := s.CreateConversation([]string{a.ID, b.ID, c.ID}, models.KindDirect, ""); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error for three-way direct, got %v", err)
	}
	if _, err := s.CreateConversation(nil, "", ""); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error for empty participants, got %v", err)
	}
	if _, err := s.CreateConversation([]string{a.ID, "u_missing"}, "", ""); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error for unknown participant, got %v", err)
	}
}

func TestAddParticipantIdempotent(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	c := mustUser(t, s, "c")
	conv, err := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.AddParticipant(conv.ID, c.ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(got.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(got.Participants))
	}
	if got.Kind != models.KindGroup {
		t.Fatalf("expected promotion to group, got %s", got.Kind)
	}
	again, err := s.AddParticipant(conv.ID, c.ID)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if len(again.Participants) != 3 {
		t.Fatalf("re-add changed participants: %d", len(again.Participants))
	}
}

func TestAppendMessageOrderingAndAuth(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	outsider := mustUser(t, s, "z")
	conv, err := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var prev string
	for i := 0; i < 20; i++ {
		m, err := s.AppendMessage(conv.ID, a.ID, "hello", AppendOptions{})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if prev != "" && m.ID <= prev {
			t.Fatalf("ids not monotonic: %s after %s", m.ID, prev)
		}
		prev = m.ID
	}

	if _, err := s.AppendMessage(conv.ID, outsider.ID, "hi", AppendOptions{}); !errors.Is(err, errdefs.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	// A client-supplied system type must not bypass membership.
	if _, err := s.AppendMessage(conv.ID, outsider.ID, "hi", AppendOptions{Type: models.TypeSystem}); !errors.Is(err, errdefs.ErrAuthorization) {
		t.Fatalf("expected authorization error for outsider system type, got %v", err)
	}
	spoofed, err := s.AppendMessage(conv.ID, a.ID, "looks official", AppendOptions{Type: models.TypeSystem})
	if err != nil {
		t.Fatalf("participant append with system type: %v", err)
	}
	if spoofed.IsSystem {
		t.Fatalf("system flag set from client-supplied type")
	}
	if _, err := s.AppendMessage(conv.ID, a.ID, "", AppendOptions{}); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error for empty content, got %v", err)
	}
	if _, err := s.AppendMessage("c_missing", a.ID, "hi", AppendOptions{}); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	sys, err := s.AppendMessage(conv.ID, models.SystemSender, "joined", AppendOptions{Type: models.TypeSystem})
	if err != nil {
		t.Fatalf("system append: %v", err)
	}
	if !sys.IsSystem {
		t.Fatalf("expected system flag set")
	}
}

func TestAppendMessageConcurrent(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	c := mustUser(t, s, "c")
	conv, err := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	errs := make(chan error, writers+1)
	for w := 0; w < writers; w++ {
		sender := a.ID
		if w%2 == 1 {
			sender = b.ID
		}
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := s.AppendMessage(conv.ID, sender, "m", AppendOptions{}); err != nil {
					errs <- err
					return
				}
			}
		}(sender)
	}
	// Membership changes racing the appenders must not be lost to a
	// stale conversation snapshot.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.AddParticipant(conv.ID, c.ID); err != nil {
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent write: %v", err)
	}

	var all []models.Message
	cursor := ""
	for {
		page, next, err := s.ListMessages(conv.ID, cursor, 50)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		all = append(all, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	if len(all) != writers*perWriter {
		t.Fatalf("expected %d messages, got %d", writers*perWriter, len(all))
	}
	seen := make(map[string]struct{}, len(all))
	for i, m := range all {
		if _, dup := seen[m.ID]; dup {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = struct{}{}
		if i > 0 && all[i].ID <= all[i-1].ID {
			t.Fatalf("ids not monotonic at %d: %s after %s", i, all[i].ID, all[i-1].ID)
		}
	}

	got, err := s.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.HasParticipant(c.ID) {
		t.Fatalf("added participant lost during concurrent appends: %v", got.Participants)
	}
	if got.Kind != models.KindGroup {
		t.Fatalf("promotion lost during concurrent appends: %s", got.Kind)
	}
}

func TestListMessagesPagination(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	conv, _ := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	for i := 0; i < 25; i++ {
		if _, err := s.AppendMessage(conv.ID, a.ID, "m", AppendOptions{}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var all []models.Message
	cursor := ""
	pages := 0
	for {
		page, next, err := s.ListMessages(conv.ID, cursor, 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		all = append(all, page...)
		pages++
		if next == "" {
			break
		}
		cursor = next
		if pages > 10 {
			t.Fatalf("cursor did not terminate")
		}
	}
	if len(all) != 25 {
		t.Fatalf("expected 25 messages across pages, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID <= all[i-1].ID {
			t.Fatalf("page order broken at %d", i)
		}
	}

	if _, _, err := s.ListMessages(conv.ID, "%%%not-base64%%%", 10); !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
	if _, _, err := s.ListMessages("c_missing", "", 10); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("expected not found for missing conversation, got %v", err)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	z := mustUser(t, s, "z")
	conv, _ := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	m, err := s.AppendMessage(conv.ID, a.ID, "hello", AppendOptions{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	r1, msg, err := s.MarkRead(m.ID, b.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !msg.Read {
		t.Fatalf("expected read flag set")
	}
	r2, _, err := s.MarkRead(m.ID, b.ID)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if r2.ReadTS != r1.ReadTS {
		t.Fatalf("repeat receipt changed timestamp")
	}

	if _, _, err := s.MarkRead(m.ID, z.ID); !errors.Is(err, errdefs.ErrAuthorization) {
		t.Fatalf("expected authorization error for outsider, got %v", err)
	}
	if _, _, err := s.MarkRead("nope", b.ID); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteAndPurge(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	conv, _ := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	m, _ := s.AppendMessage(conv.ID, a.ID, "bye", AppendOptions{})

	if err := s.DeleteMessage(m.ID, b.ID); !errors.Is(err, errdefs.ErrAuthorization) {
		t.Fatalf("expected authorization error for non-sender, got %v", err)
	}
	if err := s.DeleteMessage(m.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	page, _, err := s.ListMessages(conv.ID, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("soft-deleted message still listed")
	}

	n, err := s.PurgeDeleted(m.TS+1, 100, false)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, err := s.GetMessage(m.ID); !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("expected purged message gone, got %v", err)
	}
}

func TestListConversationsForUser(t *testing.T) {
	s := openTestStore(t)
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	c := mustUser(t, s, "c")
	c1, _ := s.CreateConversation([]string{a.ID, b.ID}, "", "")
	s.CreateConversation([]string{b.ID, c.ID}, "", "")
	if _, err := s.AppendMessage(c1.ID, a.ID, "latest", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.ListConversationsForUser(a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 conversation for a, got %d", len(got))
	}
	if got[0].LastMessage == nil || got[0].LastMessage.Content != "latest" {
		t.Fatalf("expected last message summary, got %+v", got[0].LastMessage)
	}

	all, err := s.ListConversationsForUser(b.ID)
	if err != nil {
		t.Fatalf("list b: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 conversations for b, got %d", len(all))
	}
}
