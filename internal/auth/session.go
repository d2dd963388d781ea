package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the session cookie delivered to the browser. Its value is
// the opaque session id; all session data stays server-side.
const CookieName = "s3manager_session"

// Session is one authenticated user. Created whole at the OIDC callback and
// replaced wholesale on re-login; never mutated in place.
type Session struct {
	ID          string
	Name        string
	Email       string
	Roles       []string
	Permissions PermissionSet
	AccessToken string
	Provider    string
	ExpiresAt   time.Time
}

// Expired reports whether the session's absolute TTL has passed.
func (s *Session) Expired() bool { return time.Now().After(s.ExpiresAt) }

// SessionStore is a concurrent map of sessions keyed by opaque id, with a
// fixed absolute expiry. Expired entries are dropped lazily on lookup.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session), ttl: ttl}
}

// Create registers a new session and returns it with its id and expiry set.
func (st *SessionStore) Create(s Session) *Session {
	s.ID = uuid.NewString()
	s.ExpiresAt = time.Now().Add(st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()
	stored := s
	st.sessions[stored.ID] = &stored
	return &stored
}

// Get returns the live session for id, or nil if absent or expired.
func (st *SessionStore) Get(id string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.Expired() {
		st.Delete(id)
		return nil
	}
	return s
}

// Delete removes a session; deleting an unknown id is a no-op.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
