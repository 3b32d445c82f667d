package auth

import (
	"context"
	"net/http"
	"strings"

	"chathub/pkg/logger"
)

type ctxUserKey struct{}

// BearerToken extracts the credential from a request: Authorization
// header first, then the token query parameter (browser WebSocket
// clients cannot set headers during the upgrade).
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("token")
}

// RequireUser verifies the request's JWT and injects the authenticated
// user id into the context.
func (t *Tokens) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := BearerToken(r)
		if tok == "" {
			logger.Warn("missing_token", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
			return
		}
		claims, err := t.Verify(tok)
		if err != nil {
			logger.Warn("invalid_token", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), claims.UserID)))
	})
}

// UserIDFromContext returns the authenticated user id or empty string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ContextWithUserID injects a user id directly, for tests and internal
// callers that bypass the HTTP middleware.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}
