// Package session persists the authenticated-session flag between
// invocations. The access flow only ever reads it.
package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const appDir = "getmyuri"

// Store reads and writes the session flag file.
type Store struct {
	path string
}

type sessionFile struct {
	LoggedIn  bool      `json:"logged_in"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStore places the session file under the user config directory.
func NewStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(filepath.Join(dir, appDir, "session.json")), nil
}

// NewStoreAt uses an explicit file path, mainly for tests.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// IsAuthenticated reports whether a login flag is present. A missing or
// unreadable file simply means "not signed in".
func (s *Store) IsAuthenticated() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var sess sessionFile
	if err := json.Unmarshal(data, &sess); err != nil {
		return false
	}
	return sess.LoggedIn
}

// Email returns the signed-in account, if any.
func (s *Store) Email() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var sess sessionFile
	if err := json.Unmarshal(data, &sess); err != nil {
		return ""
	}
	return sess.Email
}

// Login records the session flag.
func (s *Store) Login(email string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sessionFile{
		LoggedIn:  true,
		Email:     email,
		CreatedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Logout removes the session flag. Logging out twice is not an error.
func (s *Store) Logout() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
