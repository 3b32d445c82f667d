// Package handlers contains the versioned REST handlers. Routes are
// registered on a gorilla/mux router; authentication middleware runs in
// front of everything except the auth endpoints.
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chathub/pkg/auth"
	"chathub/pkg/config"
	"chathub/pkg/hub"
	"chathub/pkg/store"
)

// API bundles the dependencies the handlers need. No handler reaches for
// globals; everything flows through this struct.
type API struct {
	Store  *store.Store
	Hub    *hub.Hub
	Tokens *auth.Tokens
	Cfg    config.Config
}

// RegisterOpen mounts the unauthenticated routes (sign-up, sign-in,
// token refresh).
func (a *API) RegisterOpen(r *mux.Router) {
	r.HandleFunc("/auth/register", a.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", a.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", a.refresh).Methods(http.MethodPost)
}

// Register mounts the authenticated routes. The caller wraps the router
// with the token middleware.
func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/users/me", a.me).Methods(http.MethodGet)
	r.HandleFunc("/users/me/language", a.updateLanguage).Methods(http.MethodPut)
	r.HandleFunc("/users/{username}", a.getUser).Methods(http.MethodGet)

	r.HandleFunc("/conversations", a.createConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations", a.listConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", a.getConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/users/{username}", a.addParticipant).Methods(http.MethodPost)
	r.HandleFunc("/messages/conversation/{id}", a.listMessages).Methods(http.MethodGet)

	r.HandleFunc("/messages/send", a.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}", a.getMessage).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}", a.deleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/messages/{id}/read", a.markRead).Methods(http.MethodPost)
}
