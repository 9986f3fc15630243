package credentials

import (
	"os"
	"sync"
)

// Store is the token store for one backend, backed by credentials.toml.
// The MATHAI_TOKEN environment variable takes precedence over the file.
type Store struct {
	mgr  *Manager
	host string

	mu       sync.Mutex
	loaded   bool
	username string
	token    string
}

// Store returns the token store for host.
func (m *Manager) Store(host string) *Store {
	return &Store{mgr: m, host: host}
}

// Token returns the current token, or "" if there is none or the file cannot
// be read.
func (s *Store) Token() string {
	if env := os.Getenv(TokenEnvVar); env != "" {
		return env
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
	return s.token
}

// Username returns the name the stored session was opened with, if known.
func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
	return s.username
}

// load reads the host's session once. s.mu must be held.
func (s *Store) load() {
	if s.loaded {
		return
	}
	session, err := s.mgr.GetSession(s.host)
	if err != nil {
		return
	}
	s.username, s.token = session.Username, session.Token
	s.loaded = true
}

// SetUsername records the name persisted alongside the next SetToken.
func (s *Store) SetUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
	s.username = username
}

// SetToken persists token for the store's host.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mgr.SetSession(s.host, s.username, token); err != nil {
		return err
	}
	s.token, s.loaded = token, true
	return nil
}

// ClearToken removes the stored session for the store's host.
func (s *Store) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mgr.RemoveSession(s.host); err != nil {
		return err
	}
	s.username, s.token, s.loaded = "", "", true
	return nil
}
