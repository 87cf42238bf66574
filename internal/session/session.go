// Package session holds the signed-in identity. The rest of the application
// treats it as read-only: only the auth flow creates or destroys a session.
package session

import (
	"errors"
	"sync"
)

// Role is the platform role carried in the access-token claims.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known platform roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Session is the transient identity record created at sign-in. It is attached
// to the socket handshake and to every outbound API request.
type Session struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	AccessToken string `json:"-"`
}

var ErrNoSession = errors.New("no active session")

// Store holds at most one session and notifies watchers when it changes.
// Watchers are how the socket manager learns it must tear down and
// reconnect with new credentials.
type Store struct {
	mu      sync.RWMutex
	current *Session

	watchMu  sync.Mutex
	watchers []func(*Session)
}

func NewStore() *Store {
	return &Store{}
}

// Set installs sess as the current session (nil clears it) and notifies
// watchers. Setting an identical user id + token is a no-op so repeated
// sign-in responses do not churn the realtime connection.
func (s *Store) Set(sess *Session) {
	s.mu.Lock()
	if sess != nil && s.current != nil &&
		sess.UserID == s.current.UserID && sess.AccessToken == s.current.AccessToken {
		s.mu.Unlock()
		return
	}
	s.current = sess
	s.mu.Unlock()

	s.watchMu.Lock()
	watchers := make([]func(*Session), len(s.watchers))
	copy(watchers, s.watchers)
	s.watchMu.Unlock()
	for _, fn := range watchers {
		fn(sess)
	}
}

// Clear removes the current session, notifying watchers with nil.
func (s *Store) Clear() { s.Set(nil) }

// Current returns the active session, or ErrNoSession.
func (s *Store) Current() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSession
	}
	cp := *s.current
	return &cp, nil
}

// Watch registers fn to be called on every session change. The current
// session (possibly nil) is not replayed; callers read Current first.
func (s *Store) Watch(fn func(*Session)) {
	s.watchMu.Lock()
	s.watchers = append(s.watchers, fn)
	s.watchMu.Unlock()
}
