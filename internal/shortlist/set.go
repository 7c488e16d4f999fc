// Package shortlist keeps the set of saved profiles, keyed by id.
package shortlist

import (
	"context"
	"slices"
	"sync"

	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/storage"
)

// Set is the shortlist mirrored into the local store under
// storage.KeyShortlisted. Order is insertion order.
type Set struct {
	mu    sync.Mutex
	store *storage.Store
	items []profile.Profile
}

func NewSet(store *storage.Store) *Set {
	return &Set{
		store: store,
		items: []profile.Profile{},
	}
}

// Initialize seeds the set from the local store. Absent or malformed data
// leaves it empty; duplicated ids keep their first entry.
func (s *Set) Initialize(ctx context.Context) {
	persisted, _ := storage.Load[[]profile.Profile](ctx, s.store, storage.KeyShortlisted)

	items := make([]profile.Profile, 0, len(persisted))
	for _, p := range persisted {
		if !containsID(items, p.ID) {
			items = append(items, p)
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Add appends p unless a profile with the same id is present.
func (s *Set) Add(ctx context.Context, p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !containsID(s.items, p.ID) {
		s.items = append(slices.Clip(s.items), p)
	}
	s.persist(ctx)
}

// Remove drops the profile with the given id, if any.
func (s *Set) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.DeleteFunc(slices.Clone(s.items), func(p profile.Profile) bool {
		return p.ID == id
	})
	s.persist(ctx)
}

// persist writes the current items. s.mu must be held so that writes land
// in mutation order.
func (s *Set) persist(ctx context.Context) {
	storage.Save(ctx, s.store, storage.KeyShortlisted, s.items)
}

func (s *Set) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsID(s.items, id)
}

// Items returns a copy of the shortlisted profiles in insertion order.
func (s *Set) Items() []profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func containsID(items []profile.Profile, id string) bool {
	return slices.ContainsFunc(items, func(p profile.Profile) bool {
		return p.ID == id
	})
}
