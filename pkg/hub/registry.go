package hub

import (
	"sync"

	"chathub/pkg/logger"
)

// Registry tracks live sessions by user. A user may hold several
// concurrent sessions (multiple tabs or devices); delivery addresses
// users, then spreads over their sessions.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[*Session]struct{}
	count  int
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]map[*Session]struct{})}
}

// Register adds a session under its user id.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	set, ok := r.byUser[s.UserID]
	if !ok {
		set = make(map[*Session]struct{})
		r.byUser[s.UserID] = set
	}
	set[s] = struct{}{}
	r.count++
	n := r.count
	r.mu.Unlock()
	sessionsActive.Set(float64(n))
	logger.Info("session_registered", "session", s.ID, "user", s.UserID, "active", n)
}

// Unregister removes a session; removing an unknown session is a no-op.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	set, ok := r.byUser[s.UserID]
	if ok {
		if _, present := set[s]; present {
			delete(set, s)
			r.count--
			if len(set) == 0 {
				delete(r.byUser, s.UserID)
			}
		}
	}
	n := r.count
	r.mu.Unlock()
	sessionsActive.Set(float64(n))
	logger.Info("session_unregistered", "session", s.ID, "user", s.UserID, "active", n)
}

// SessionsFor snapshots the user's live sessions.
func (r *Registry) SessionsFor(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Online reports whether the user has at least one live session.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
