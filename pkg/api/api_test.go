package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chathub/pkg/auth"
	"chathub/pkg/config"
	"chathub/pkg/hub"
	"chathub/pkg/models"
	"chathub/pkg/store"
	"chathub/pkg/translate"
)

type testServer struct {
	handler http.Handler
	store   *store.Store
	hub     *hub.Hub
	tokens  *auth.Tokens
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	var cfg config.Config
	cfg.Auth.JWTSecret = "test-secret-test-secret"
	cfg.Auth.BcryptCost = 4
	cfg.ApplyDefaults()

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Hour, 2*time.Hour)
	h := hub.New(st, translate.NewDemo(), cfg.Hub)
	return &testServer{
		handler: Handler(Deps{Store: st, Hub: h, Tokens: tokens, Cfg: cfg}),
		store:   st,
		hub:     h,
		tokens:  tokens,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// registerUser signs a user up through the API and returns the user and
// an access token.
func (ts *testServer) registerUser(t *testing.T, username, lang string) (*models.User, string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username":          username,
		"password":          "pass-" + username,
		"preferredLanguage": lang,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		User   *models.User `json:"user"`
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.User, resp.Tokens.AccessToken
}

func TestRegisterLoginRefresh(t *testing.T) {
	ts := newTestServer(t)
	u, _ := ts.registerUser(t, "alice", "en")
	if u.Username != "alice" {
		t.Fatalf("unexpected username %q", u.Username)
	}
	if u.PasswordHash != "" {
		t.Fatalf("password hash leaked in response")
	}

	// duplicate username
	rec := ts.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": "alice", "password": "x-whatever",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d", rec.Code)
	}

	// login
	rec = ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "pass-alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d: %s", rec.Code, rec.Body.String())
	}
	var loginResp struct {
		Tokens struct {
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &loginResp)

	// wrong password
	rec = ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}

	// refresh
	rec = ts.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refreshToken": loginResp.Tokens.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/v1/conversations", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/v1/users/me", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestUserEndpoints(t *testing.T) {
	ts := newTestServer(t)
	_, tokA := ts.registerUser(t, "alice", "en")
	ts.registerUser(t, "bob", "es")

	rec := ts.do(t, http.MethodGet, "/v1/users/me", tokA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/v1/users/bob", tokA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get user: %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/v1/users/ghost", tokA, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPut, "/v1/users/me/language", tokA, map[string]string{
		"preferredLanguage": "fr",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update language: %d: %s", rec.Code, rec.Body.String())
	}
	var u models.User
	_ = json.Unmarshal(rec.Body.Bytes(), &u)
	if u.PreferredLanguage != "fr" {
		t.Fatalf("language not updated: %+v", u)
	}

	rec = ts.do(t, http.MethodPut, "/v1/users/me/language", tokA, map[string]string{
		"preferredLanguage": "not a lang",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad language, got %d", rec.Code)
	}
}

func TestConversationFlow(t *testing.T) {
	ts := newTestServer(t)
	_, tokA := ts.registerUser(t, "alice", "en")
	ts.registerUser(t, "bob", "en")
	_, tokZ := ts.registerUser(t, "zoe", "en")

	rec := ts.do(t, http.MethodPost, "/v1/conversations", tokA, map[string]interface{}{
		"participants": []string{"bob"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create conversation: %d: %s", rec.Code, rec.Body.String())
	}
	var conv models.Conversation
	_ = json.Unmarshal(rec.Body.Bytes(), &conv)
	if conv.Kind != models.KindDirect || len(conv.Participants) != 2 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	// unknown participant
	rec = ts.do(t, http.MethodPost, "/v1/conversations", tokA, map[string]interface{}{
		"participants": []string{"ghost"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown participant, got %d", rec.Code)
	}

	// listing
	rec = ts.do(t, http.MethodGet, "/v1/conversations", tokA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var sums []models.ConversationSummary
	_ = json.Unmarshal(rec.Body.Bytes(), &sums)
	if len(sums) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(sums))
	}

	// outsider lookups read as missing
	rec = ts.do(t, http.MethodGet, "/v1/conversations/"+conv.ID, tokZ, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for outsider, got %d", rec.Code)
	}

	// add zoe; the join should be announced with a system message
	rec = ts.do(t, http.MethodPost, "/v1/conversations/"+conv.ID+"/users/zoe", tokA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("add participant: %d: %s", rec.Code, rec.Body.String())
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &conv)
	if len(conv.Participants) != 3 || conv.Kind != models.KindGroup {
		t.Fatalf("expected promoted group of 3, got %+v", conv)
	}
	msgs, _, err := ts.store.ListMessages(conv.ID, "", 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsSystem {
		t.Fatalf("expected one system message, got %+v", msgs)
	}
}

func TestMessageFlow(t *testing.T) {
	ts := newTestServer(t)
	_, tokA := ts.registerUser(t, "alice", "en")
	ts.registerUser(t, "bob", "en")
	_, tokZ := ts.registerUser(t, "zoe", "en")

	rec := ts.do(t, http.MethodPost, "/v1/conversations", tokA, map[string]interface{}{
		"participants": []string{"bob"},
	})
	var conv models.Conversation
	_ = json.Unmarshal(rec.Body.Bytes(), &conv)

	// send
	rec = ts.do(t, http.MethodPost, "/v1/messages/send", tokA, map[string]string{
		"conversationId": conv.ID, "content": "hello bob",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send: %d: %s", rec.Code, rec.Body.String())
	}
	var m models.Message
	_ = json.Unmarshal(rec.Body.Bytes(), &m)
	if m.ID == "" || m.Content != "hello bob" {
		t.Fatalf("unexpected message: %+v", m)
	}

	// outsider cannot send
	rec = ts.do(t, http.MethodPost, "/v1/messages/send", tokZ, map[string]string{
		"conversationId": conv.ID, "content": "intruding",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider send, got %d", rec.Code)
	}

	// blank content
	rec = ts.do(t, http.MethodPost, "/v1/messages/send", tokA, map[string]string{
		"conversationId": conv.ID, "content": "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank content, got %d", rec.Code)
	}

	// the system type is server-minted; clients cannot claim it
	rec = ts.do(t, http.MethodPost, "/v1/messages/send", tokA, map[string]string{
		"conversationId": conv.ID, "content": "fake notice", "messageType": "SYSTEM",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for system type, got %d", rec.Code)
	}

	// paginate
	for i := 0; i < 12; i++ {
		ts.do(t, http.MethodPost, "/v1/messages/send", tokA, map[string]string{
			"conversationId": conv.ID, "content": fmt.Sprintf("m%d", i),
		})
	}
	rec = ts.do(t, http.MethodGet, "/v1/messages/conversation/"+conv.ID+"?limit=5", tokA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list page 1: %d", rec.Code)
	}
	var page struct {
		Messages   []models.Message `json:"messages"`
		NextCursor string           `json:"nextCursor"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if len(page.Messages) != 5 || page.NextCursor == "" {
		t.Fatalf("unexpected page: %d messages, cursor %q", len(page.Messages), page.NextCursor)
	}
	rec = ts.do(t, http.MethodGet, "/v1/messages/conversation/"+conv.ID+"?limit=5&cursor="+page.NextCursor, tokA, nil)
	var page2 struct {
		Messages []models.Message `json:"messages"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &page2)
	if len(page2.Messages) != 5 {
		t.Fatalf("expected 5 on page 2, got %d", len(page2.Messages))
	}
	if page2.Messages[0].ID <= page.Messages[4].ID {
		t.Fatalf("pages overlap")
	}

	// bad cursor
	rec = ts.do(t, http.MethodGet, "/v1/messages/conversation/"+conv.ID+"?cursor=%25bad", tokA, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad cursor, got %d", rec.Code)
	}

	// mark read as bob
	rec = ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "bob", "password": "pass-bob",
	})
	var loginResp struct {
		Tokens struct {
			AccessToken string `json:"accessToken"`
		} `json:"tokens"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &loginResp)
	tokB := loginResp.Tokens.AccessToken

	rec = ts.do(t, http.MethodPost, "/v1/messages/"+m.ID+"/read", tokB, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: %d: %s", rec.Code, rec.Body.String())
	}
	var receipt models.Receipt
	_ = json.Unmarshal(rec.Body.Bytes(), &receipt)
	if receipt.MessageID != m.ID {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	// delete own message
	rec = ts.do(t, http.MethodDelete, "/v1/messages/"+m.ID, tokB, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-sender delete, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, "/v1/messages/"+m.ID, tokA, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/v1/messages/"+m.ID, tokA, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted message, got %d", rec.Code)
	}
}
