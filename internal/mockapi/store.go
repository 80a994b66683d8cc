// Package mockapi is an in-memory reference implementation of the
// getmyuri server contract: link creation, anonymous shortening and the
// /r/ authorization check. It backs local development and the contract
// tests; it deliberately has no external storage so tests stay hermetic.
package mockapi

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getmyuri/getmyuri-client/internal/model"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrAliasConflict = errors.New("alias already exists")
)

// Link is a stored short link and its access policy.
type Link struct {
	ID          uuid.UUID
	AliasPath   string
	Destination string
	Passcode    string
	Geofence    *model.Geofence
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	Visits      int64
}

// PasswordRequired reports whether the policy demands a passcode.
func (l *Link) PasswordRequired() bool { return l.Passcode != "" }

// LocationRequired reports whether the policy demands a position.
func (l *Link) LocationRequired() bool { return l.Geofence != nil }

// Expired reports whether the link is past its validity window.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Store keeps links keyed by alias path.
type Store struct {
	mu    sync.RWMutex
	links map[string]*Link
}

func NewStore() *Store {
	return &Store{links: make(map[string]*Link)}
}

// Put inserts a link, refusing alias collisions.
func (s *Store) Put(link *Link) error {
	alias := strings.Trim(link.AliasPath, "/")
	if alias == "" {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[alias]; exists {
		return ErrAliasConflict
	}

	stored := *link
	stored.AliasPath = alias
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.links[alias] = &stored
	return nil
}

// Get returns a copy of the link for the alias path.
func (s *Store) Get(aliasPath string) (Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[strings.Trim(aliasPath, "/")]
	if !ok {
		return Link{}, ErrNotFound
	}
	return *link, nil
}

// Visit increments the access counter for analytics.
func (s *Store) Visit(aliasPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if link, ok := s.links[strings.Trim(aliasPath, "/")]; ok {
		link.Visits++
	}
}
