package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chathub/pkg/auth"
	"chathub/pkg/logger"
	"chathub/pkg/utils"
	"chathub/pkg/validation"
)

// me handles GET /v1/users/me.
func (a *API) me(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	u, err := a.Store.GetUser(auth.UserIDFromContext(r.Context()))
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

// getUser handles GET /v1/users/{username}. The lookup is by username so
// clients can resolve a peer before starting a conversation.
func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	u, err := a.Store.GetUserByUsername(mux.Vars(r)["username"])
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

type languageRequest struct {
	PreferredLanguage string `json:"preferredLanguage"`
}

// updateLanguage handles PUT /v1/users/me/language. Subsequent fan-out
// annotates messages for the new language.
func (a *API) updateLanguage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PreferredLanguage == "" {
		utils.JSONError(w, http.StatusBadRequest, "preferredLanguage is required")
		return
	}
	if err := validation.Language(req.PreferredLanguage); err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	u, err := a.Store.SetPreferredLanguage(userID, req.PreferredLanguage)
	if err != nil {
		utils.JSONErrorFrom(w, err)
		return
	}
	logger.Info("language_updated", "user", userID, "language", req.PreferredLanguage)
	_ = utils.JSONWrite(w, http.StatusOK, u)
}
