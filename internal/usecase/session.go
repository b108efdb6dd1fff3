package usecase

import "sync"

// SessionTracker holds the backend-issued session token for one widget.
// It starts empty and is never cleared; concurrent writers resolve
// last-write-wins.
type SessionTracker struct {
	mu    sync.RWMutex
	token string
}

// NewSessionTracker creates an empty tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{}
}

// Get returns the current token and whether one is set.
func (s *SessionTracker) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Token returns the current token, or "" when none is set.
func (s *SessionTracker) Token() string {
	t, _ := s.Get()
	return t
}

// Set stores token and reports whether the stored value changed. An empty
// token is ignored.
func (s *SessionTracker) Set(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		return false
	}
	s.token = token
	return true
}
