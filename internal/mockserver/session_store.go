package mockserver

import (
	"sync"
	"time"
)

// authSession is the server-side state behind an issued token.
type authSession struct {
	UserID         int64
	ExpiresAt      time.Time
	LastAccessedAt time.Time
}

// sessionStore is a thread-safe in-memory session table keyed by token ID.
// Sessions are lost on restart.
type sessionStore struct {
	mu          sync.Mutex
	data        map[string]authSession
	idleTimeout time.Duration
	now         func() time.Time
}

// newSessionStore creates a store. idleTimeout of 0 disables idle expiry.
func newSessionStore(idleTimeout time.Duration, now func() time.Time) *sessionStore {
	return &sessionStore{
		data:        make(map[string]authSession),
		idleTimeout: idleTimeout,
		now:         now,
	}
}

// touch returns the live session for id and refreshes its idle timer.
// Expired or idle sessions are dropped.
func (s *sessionStore) touch(id string) (authSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.data[id]
	if !ok {
		return authSession{}, false
	}
	now := s.now()
	if now.After(session.ExpiresAt) {
		delete(s.data, id)
		return authSession{}, false
	}
	if s.idleTimeout > 0 && now.Sub(session.LastAccessedAt) > s.idleTimeout {
		delete(s.data, id)
		return authSession{}, false
	}
	session.LastAccessedAt = now
	s.data[id] = session
	return session, true
}

func (s *sessionStore) put(id string, session authSession) {
	s.mu.Lock()
	s.data[id] = session
	s.mu.Unlock()
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
}

// revokeUser drops every session of userID.
func (s *sessionStore) revokeUser(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, session := range s.data {
		if session.UserID == userID {
			delete(s.data, id)
			n++
		}
	}
	return n
}
