package usecases

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ericnem/passepartout/internal/pkg/metrics"
)

// SessionRegistry holds the live guide sessions. Sessions are in-memory
// only; trip history does not survive a restart.
type SessionRegistry struct {
	cfg  SessionConfig
	deps SessionDeps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(cfg SessionConfig, deps SessionDeps) *SessionRegistry {
	return &SessionRegistry{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session and returns it.
func (r *SessionRegistry) Create() *Session {
	s := NewSession(uuid.NewString(), r.cfg, r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return s
}

// Get looks a session up by ID.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove closes a session and drops it from the registry.
func (r *SessionRegistry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	return nil
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll shuts every session down. Used on server shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
}
