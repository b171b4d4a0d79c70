package auth

import (
	"sync"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

// SessionStore provides thread-safe storage of the current session.
type SessionStore struct {
	mu    sync.RWMutex
	token *Token
	user  *ledger.UserSummary
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Get returns the current token, or nil when unauthenticated.
func (s *SessionStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return nil
	}

	token := *s.token

	return &token
}

// Session returns a copy of the current session.
func (s *SessionStore) Session() ledger.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var session ledger.Session

	if s.token != nil {
		session.AccessToken = s.token.AccessToken
		session.RefreshToken = s.token.RefreshToken
	}

	if s.user != nil {
		user := *s.user
		session.User = &user
	}

	return session
}

// Set replaces the token and user.
func (s *SessionStore) Set(token *Token, user *ledger.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = user
}

// SetToken replaces the token and keeps the user.
func (s *SessionStore) SetToken(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear drops the session.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
	s.user = nil
}

// AccessToken returns the access token, or "" when unauthenticated.
func (s *SessionStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return ""
	}

	return s.token.AccessToken
}
