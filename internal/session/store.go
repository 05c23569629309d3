package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store keeps live sessions in process memory and serializes all access per
// session ID. Concurrent turns against the same session never interleave; the
// second caller blocks until the first turn finishes.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create registers a new session for the profile and returns its ID.
func (s *Store) Create(profile *SkillProfile) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry{sess: New(id, profile)}

	return id, nil
}

// Do runs fn with exclusive ownership of the session. All mutations of a
// session must go through here.
func (s *Store) Do(id string, fn func(*Session) error) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s not found", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return fn(e.sess)
}

// Delete removes the session. It is a no-op for unknown IDs.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
