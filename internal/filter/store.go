package filter

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Store owns the live Criteria. Readers get an atomic point-in-time copy, writers
// are serialized and swap in a validated replacement, so a scan never sees a torn value.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[Criteria]
}

// NewStore validates the initial criteria and wraps it.
func NewStore(initial Criteria) (*Store, error) {
	c := initial.Clone()
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("initial criteria: %w", err)
	}
	s := &Store{}
	s.cur.Store(&c)
	return s, nil
}

// Snapshot returns a deep copy of the current criteria.
func (s *Store) Snapshot() Criteria {
	c := s.cur.Load()
	if c == nil {
		return DefaultCriteria()
	}
	return c.Clone()
}

// Update applies fn to a copy of the current criteria and publishes it if it validates.
// On error the stored value is left untouched.
func (s *Store) Update(fn func(*Criteria) error) (Criteria, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.Snapshot()
	if err := fn(&next); err != nil {
		return s.Snapshot(), err
	}
	next.normalize()
	if err := next.Validate(); err != nil {
		return s.Snapshot(), err
	}
	published := next.Clone()
	s.cur.Store(&published)
	return next, nil
}

// Replace swaps in c wholesale.
func (s *Store) Replace(c Criteria) error {
	_, err := s.Update(func(dst *Criteria) error {
		*dst = c.Clone()
		return nil
	})
	return err
}

// ApplyPatch merges a partial update into the store.
func (s *Store) ApplyPatch(patch map[string]any) (Criteria, error) {
	return s.Update(func(c *Criteria) error {
		return ApplyPatch(c, patch)
	})
}
