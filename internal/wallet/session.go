package wallet

import "sync"

// Session wraps the single active account and the chain client configured
// for it. It lives from wallet creation/import/restore until logout.
type Session struct {
	Account Account
	Client  ChainClient
}

// SessionStore holds the raw key material for the lifetime of a process
// session. A single slot: Save replaces any previous value, Clear is
// idempotent.
type SessionStore struct {
	mu  sync.Mutex
	raw string
	set bool
}

func NewSessionStore() *SessionStore { return &SessionStore{} }

func (s *SessionStore) Save(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
	s.set = true
}

func (s *SessionStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, s.set
}

func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = ""
	s.set = false
}
