// Package stores provides the built-in user store: an in-memory map with
// optional JSON file persistence. It exists for the bundled server and for
// tests; production deployments implement their own provider against a real
// identity database.
package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webqx-health/authkit"
)

// saveDebounce coalesces bursts of writes into a single file save.
const saveDebounce = 400 * time.Millisecond

type persistedUser struct {
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"password_hash"`
	FullName     string   `json:"full_name"`
	UserType     string   `json:"user_type"`
	Role         string   `json:"role"`
	MFAEnabled   bool     `json:"mfa_enabled"`
	Permissions  []string `json:"permissions,omitempty"`
	Active       bool     `json:"active"`
}

// UserStore is an in-memory authkit.UserProvider. When constructed with a
// path it loads existing users at start and persists changes back to the
// file, debounced so a burst of writes produces one save.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]authkit.UserRecord
	byEmail map[string]string

	path      string
	saveTimer *time.Timer
	closed    bool
}

// NewUserStore returns an empty in-memory store with no persistence.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]authkit.UserRecord),
		byEmail: make(map[string]string),
	}
}

// OpenUserStore loads users from path, creating an empty store if the file
// does not exist yet. Subsequent mutations are written back to the file.
func OpenUserStore(path string) (*UserStore, error) {
	s := NewUserStore()
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read user store: %w", err)
	}

	var users []persistedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode user store: %w", err)
	}
	for _, u := range users {
		rec := authkit.UserRecord(u)
		s.byID[rec.UserID] = rec
		s.byEmail[strings.ToLower(rec.Email)] = rec.UserID
	}
	return s, nil
}

// GetUserByEmail implements authkit.UserProvider. Lookup is
// case-insensitive.
func (s *UserStore) GetUserByEmail(_ context.Context, email string) (authkit.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return authkit.UserRecord{}, authkit.ErrUserNotFound
	}
	return s.byID[id], nil
}

// GetUserByID implements authkit.UserProvider.
func (s *UserStore) GetUserByID(_ context.Context, userID string) (authkit.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[userID]
	if !ok {
		return authkit.UserRecord{}, authkit.ErrUserNotFound
	}
	return rec, nil
}

// Put inserts or replaces a user. A zero UserID gets a generated one; the
// populated record is returned.
func (s *UserStore) Put(rec authkit.UserRecord) (authkit.UserRecord, error) {
	if rec.Email == "" {
		return authkit.UserRecord{}, errors.New("user email required")
	}
	if rec.UserID == "" {
		rec.UserID = uuid.NewString()
	}

	s.mu.Lock()
	if prev, ok := s.byID[rec.UserID]; ok {
		delete(s.byEmail, strings.ToLower(prev.Email))
	}
	s.byID[rec.UserID] = rec
	s.byEmail[strings.ToLower(rec.Email)] = rec.UserID
	s.scheduleSaveLocked()
	s.mu.Unlock()

	return rec, nil
}

// Delete removes a user. Deleting an unknown ID is a no-op.
func (s *UserStore) Delete(userID string) {
	s.mu.Lock()
	if rec, ok := s.byID[userID]; ok {
		delete(s.byID, userID)
		delete(s.byEmail, strings.ToLower(rec.Email))
		s.scheduleSaveLocked()
	}
	s.mu.Unlock()
}

// Len reports the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *UserStore) scheduleSaveLocked() {
	if s.path == "" || s.closed {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(saveDebounce, func() {
		// Errors here surface on the next explicit Flush.
		_ = s.Flush()
	})
}

// Flush writes the current state to the backing file immediately. It is a
// no-op for stores without persistence.
func (s *UserStore) Flush() error {
	s.mu.RLock()
	path := s.path
	users := make([]persistedUser, 0, len(s.byID))
	for _, rec := range s.byID {
		users = append(users, persistedUser(rec))
	}
	s.mu.RUnlock()

	if path == "" {
		return nil
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user store: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write user store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace user store: %w", err)
	}
	return nil
}

// Close cancels any pending debounced save and flushes once. The store stays
// readable after Close.
func (s *UserStore) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.mu.Unlock()

	return s.Flush()
}
