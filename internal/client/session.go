// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"inkpost/internal/models"
)

// Credentials is what a successful login or registration yields.
type Credentials struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *models.Author `json:"user"`
}

// valid reports whether the credentials are usable as-is.
func (c *Credentials) valid() bool {
	return c != nil && c.Token != "" && c.User != nil
}

// SessionStore persists credentials between runs.
type SessionStore interface {
	// Load returns nil credentials when nothing is stored.
	Load() (*Credentials, error)
	Save(c *Credentials) error
	Clear() error
}

// FileStore keeps credentials in a JSON file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionFile returns ~/.config/inkpost/session.json, or a file in
// the working directory when no user config dir is known.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "inkpost-session.json"
	}
	return filepath.Join(dir, "inkpost", "session.json")
}

// Load implements SessionStore.
func (f *FileStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &c, nil
}

// Save implements SessionStore.
func (f *FileStore) Save(c *Credentials) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear implements SessionStore. A missing file is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Session is the client's authentication context. It is hydrated once at
// startup, set on login or registration, and cleared on logout or on any
// 401 from the server.
type Session struct {
	mu    sync.RWMutex
	store SessionStore
	creds *Credentials
	now   func() time.Time
}

// NewSession returns an empty session persisted to store. A nil store
// keeps the session in memory only.
func NewSession(store SessionStore) *Session {
	return &Session{store: store, now: time.Now}
}

// Hydrate loads stored credentials. Unreadable, incomplete or expired
// credentials are discarded and the session starts signed out.
func (s *Session) Hydrate() error {
	if s.store == nil {
		return nil
	}
	c, err := s.store.Load()
	if err != nil || !c.valid() || s.expired(c) {
		if clearErr := s.Clear(); clearErr != nil {
			return clearErr
		}
		if err != nil {
			return fmt.Errorf("hydrate session: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
	return nil
}

func (s *Session) expired(c *Credentials) bool {
	return !c.ExpiresAt.IsZero() && !s.now().Before(c.ExpiresAt)
}

// Set replaces the current credentials and persists them.
func (s *Session) Set(c *Credentials) error {
	if !c.valid() {
		return errors.New("set session: token and user are required")
	}
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Save(c)
}

// Clear signs the session out and removes persisted credentials.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Clear()
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.Token
}

// User returns the signed-in user, or nil.
func (s *Session) User() *models.Author {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return nil
	}
	return s.creds.User
}

// Authenticated reports whether the session holds credentials.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
