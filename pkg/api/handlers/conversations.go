package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chathub/pkg/auth"
	"chathub/pkg/logger"
	"chathub/pkg/models"
	"chathub/pkg/utils"
	"chathub/pkg/validation"
)

type createConversationRequest struct {
	// Participants are usernames; the caller is always included.
	Participants []string                `json:"participants"`
	Kind         models.ConversationKind `json:"kind,omitempty"`
	Name         string                  `json:"name,omitempty"`
}

// createConversation handles POST /v1/conversations. The caller becomes
// a participant whether or not they list themselves.
func (a *API) createConversation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.GroupName(req.Name); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	callerID := auth.UserIDFromContext(r.Context())
	ids := []string{callerID}
	for _, name := range req.Participants {
		u, err := a.Store.GetUserByUsername(name)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "unknown participant "+name)
			return
		}
		ids = append(ids, u.ID)
	}
	c, err := a.Store.CreateConversation(ids, req.Kind, req.Name)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, c)
}

// listConversations handles GET /v1/conversations: every conversation
// the caller belongs to, with last-message summaries.
func (a *API) listConversations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	out, err := a.Store.ListConversationsForUser(auth.UserIDFromContext(r.Context()))
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

// getConversation handles GET /v1/conversations/{id}. Only participants
// may look a conversation up; outsiders get 404 rather than confirmation
// that it exists.
func (a *API) getConversation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	c, err := a.Store.GetConversation(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if !c.HasParticipant(auth.UserIDFromContext(r.Context())) {
		utils.JSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}

// addParticipant handles POST /v1/conversations/{id}/users/{username}.
// The caller must already be a participant. A system message announces
// the join.
func (a *API) addParticipant(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	c, err := a.Store.GetConversation(vars["id"])
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if !c.HasParticipant(auth.UserIDFromContext(r.Context())) {
		utils.JSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	u, err := a.Store.GetUserByUsername(vars["username"])
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	already := c.HasParticipant(u.ID)
	c, err = a.Store.AddParticipant(c.ID, u.ID)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	if !already {
		if _, err := a.Hub.NotifySystem(c.ID, u.Username+" joined the conversation"); err != nil {
			logger.Warn("join_notice_failed", "conversation", c.ID, "error", err)
		}
	}
	_ = utils.JSONWrite(w, http.StatusOK, c)
}
