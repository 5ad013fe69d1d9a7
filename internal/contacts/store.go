package contacts

import (
	"sync"

	"contactreport/internal/model"
)

// Store holds the most recently fetched contact collection. The collection
// is only ever replaced wholesale; readers always get a copy.
type Store struct {
	mu       sync.RWMutex
	contacts []model.Contact
	loaded   bool
}

func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a new collection.
func (s *Store) Replace(cs []model.Contact) {
	cp := make([]model.Contact, len(cs))
	copy(cp, cs)
	s.mu.Lock()
	s.contacts = cp
	s.loaded = true
	s.mu.Unlock()
}

// Clear empties the collection, e.g. on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.contacts = nil
	s.loaded = false
	s.mu.Unlock()
}

// All returns a copy of the collection in fetch order.
func (s *Store) All() []model.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// Loaded reports whether a fetch has ever succeeded since the last Clear.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Companies returns the company options for the current collection.
func (s *Store) Companies() []string {
	return Companies(s.All())
}

// Apply evaluates f against the full current collection.
func (s *Store) Apply(f Filter) []model.Contact {
	return f.Apply(s.All())
}
