// Package api assembles the versioned HTTP surface: REST routes under
// /v1 plus the WebSocket upgrade endpoint.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chathub/pkg/api/handlers"
	"chathub/pkg/auth"
	"chathub/pkg/config"
	"chathub/pkg/hub"
	"chathub/pkg/store"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Store  *store.Store
	Hub    *hub.Hub
	Tokens *auth.Tokens
	Cfg    config.Config
}

// Handler builds the application router. Auth endpoints are open; all
// other /v1 routes and /ws require a valid token.
func Handler(d Deps) http.Handler {
	a := &handlers.API{Store: d.Store, Hub: d.Hub, Tokens: d.Tokens, Cfg: d.Cfg}

	r := mux.NewRouter()

	open := r.PathPrefix("/v1").Subrouter()
	a.RegisterOpen(open)

	protected := r.PathPrefix("/v1").Subrouter()
	protected.Use(d.Tokens.RequireUser)
	a.Register(protected)

	r.Handle("/ws", d.Tokens.RequireUser(http.HandlerFunc(d.Hub.ServeWS)))
	return r
}
