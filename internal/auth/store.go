package auth

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
)

// Session is the server-side half of a signed-in browser session.
type Session struct {
	Credential *Credential
	UserName   string
	CreatedAt  time.Time
}

// Store maps session ids to credentials. Safe for concurrent use.
// Sessions live in memory only and are lost on restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create stores cred under a fresh random session id.
func (s *Store) Create(cred *Credential, userName string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	sid := hex.EncodeToString(id[:])

	s.mu.Lock()
	s.sessions[sid] = &Session{Credential: cred, UserName: userName, CreatedAt: s.now()}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
	return sid, nil
}

// Get returns the session for sid. An unknown sid is not an error.
func (s *Store) Get(sid string) (*Session, bool) {
	if sid == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sid]
	return sess, ok
}

// Delete removes sid. Deleting an unknown sid is a no-op.
func (s *Store) Delete(sid string) {
	s.mu.Lock()
	delete(s.sessions, sid)
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune removes sessions older than maxAge and returns how many were removed.
// Their cookies have expired by then.
func (s *Store) Prune(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	removed := 0
	for sid, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, sid)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
	return removed
}
