// Package snapshot holds the periodically refreshed in-memory view of the
// organization's repositories, people, and projects. A Snapshot is an
// immutable value; the store only ever replaces the current reference
// wholesale, so readers need no locking beyond acquiring the reference.
package snapshot

import (
	"sync/atomic"

	"github.com/h0rv/ghcord/internal/domain"
)

// Store holds the current Snapshot behind an atomically-swapped pointer.
type Store struct {
	cur atomic.Pointer[domain.Snapshot]
}

// NewStore creates a store holding an empty Snapshot, so Current never
// returns nil.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&domain.Snapshot{})
	return s
}

// Current returns the active Snapshot. The returned value must be treated
// as read-only; concurrent refreshes install new snapshots without touching
// previously returned ones.
func (s *Store) Current() *domain.Snapshot {
	return s.cur.Load()
}

// install replaces the active Snapshot.
func (s *Store) install(next *domain.Snapshot) {
	s.cur.Store(next)
}
