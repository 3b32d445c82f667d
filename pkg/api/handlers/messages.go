package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chathub/pkg/auth"
	"chathub/pkg/models"
	"chathub/pkg/utils"
	"chathub/pkg/validation"
)

type sendMessageRequest struct {
	ConversationID string             `json:"conversationId"`
	Content        string             `json:"content"`
	MessageType    models.MessageType `json:"messageType,omitempty"`
}

// sendMessage handles POST /v1/messages/send. The message is persisted
// and fanned out to the other participants' live sessions; the stored
// message comes back to the caller.
func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.Content(req.Content, a.Cfg.Hub.MaxContentLen); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if err := validation.MessageType(req.MessageType); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	m, err := a.Hub.SendMessage(auth.UserIDFromContext(r.Context()), req.ConversationID, req.Content, req.MessageType)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// listMessages handles GET /v1/messages/conversation/{id} with cursor
// pagination: ?limit=<n>&cursor=<opaque>. The response carries the next
// cursor when more pages remain.
func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	convID := mux.Vars(r)["id"]
	c, err := a.Store.GetConversation(convID)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if !c.HasParticipant(auth.UserIDFromContext(r.Context())) {
		utils.JSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if max := a.Cfg.Hub.MaxPageSize; max > 0 && limit > max {
		limit = max
	}
	msgs, next, err := a.Store.ListMessages(convID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]interface{}{
		"messages":   msgs,
		"nextCursor": next,
	})
}

// getMessage handles GET /v1/messages/{id}.
func (a *API) getMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	m, err := a.Store.GetMessage(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	c, err := a.Store.GetConversation(m.ConversationID)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if !c.HasParticipant(auth.UserIDFromContext(r.Context())) || m.Deleted {
		utils.JSONError(w, http.StatusNotFound, "message not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// markRead handles POST /v1/messages/{id}/read. Other participants'
// sessions receive a status frame.
func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	receipt, err := a.Hub.MarkRead(auth.UserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, receipt)
}

// deleteMessage handles DELETE /v1/messages/{id}. Senders soft-delete
// their own messages; retention purges tombstones later.
func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := a.Store.DeleteMessage(mux.Vars(r)["id"], auth.UserIDFromContext(r.Context())); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
