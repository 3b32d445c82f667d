// Package app wires configuration, storage, the realtime hub and the
// HTTP server into one lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"chathub/internal/retention"
	"chathub/pkg/auth"
	"chathub/pkg/config"
	"chathub/pkg/hub"
	"chathub/pkg/logger"
	"chathub/pkg/store"
	"chathub/pkg/translate"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	st     *store.Store
	hub    *hub.Hub
	tokens *auth.Tokens

	srv           *http.Server
	stopRetention context.CancelFunc
}

// New validates the effective config and opens the store. It does not
// start the HTTP server; call Run to start it and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	config.SetRuntime(&config.RuntimeConfig{JWTSecret: eff.Config.Auth.JWTSecret})

	st, err := store.Open(eff.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	// Token signing reads the secret back through the runtime config so
	// every consumer sees the same canonical value.
	tokens := auth.NewTokens(
		config.JWTSecret(),
		time.Duration(eff.Config.Auth.AccessTTLHours)*time.Hour,
		time.Duration(eff.Config.Auth.RefreshTTLHours)*time.Hour,
	)
	h := hub.New(st, translate.NewDemo(), eff.Config.Hub)

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		st:        st,
		hub:       h,
		tokens:    tokens,
	}, nil
}

// Run starts retention and the HTTP server, and blocks until ctx is
// canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopRet, err := retention.Start(ctx, a.eff.Config.Retention, a.st)
	if err != nil {
		return err
	}
	a.stopRetention = stopRet

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		_ = a.shutdown()
		return err
	}
}

// shutdown stops retention, drains the HTTP server and closes the store.
func (a *App) shutdown() error {
	if a.stopRetention != nil {
		a.stopRetention()
	}
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := a.st.Close(); err != nil {
		logger.Error("store_close_error", "error", err)
		return err
	}
	logger.Info("shutdown_complete")
	return nil
}
