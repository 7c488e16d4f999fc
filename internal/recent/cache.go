// Package recent keeps the bounded list of recently viewed profiles, most
// recent first and deduplicated by id.
package recent

import (
	"context"
	"slices"
	"sync"

	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/storage"
)

const DefaultCapacity = 5

// Record returns the list with p moved (or added) to the front and truncated
// to capacity. prev is not modified.
func Record(prev []profile.Profile, p profile.Profile, capacity int) []profile.Profile {
	next := make([]profile.Profile, 0, min(len(prev)+1, max(capacity, 0)))
	if capacity <= 0 {
		return next
	}

	next = append(next, p)
	for _, e := range prev {
		if len(next) == capacity {
			break
		}
		if e.ID != p.ID {
			next = append(next, e)
		}
	}

	return next
}

// Cache is the recency cache mirrored into the local store under
// storage.KeyRecentlyBrowsed.
type Cache struct {
	mu       sync.Mutex
	store    *storage.Store
	capacity int
	items    []profile.Profile
}

func NewCache(store *storage.Store, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		store:    store,
		capacity: capacity,
		items:    []profile.Profile{},
	}
}

// Initialize seeds the cache from the local store. Absent or malformed data
// leaves the cache empty; persisted data that breaks the capacity or
// uniqueness rules is normalised.
func (c *Cache) Initialize(ctx context.Context) {
	persisted, _ := storage.Load[[]profile.Profile](ctx, c.store, storage.KeyRecentlyBrowsed)

	items := make([]profile.Profile, 0, c.capacity)
	seen := make(map[string]bool, len(persisted))
	for _, p := range persisted {
		if len(items) == c.capacity {
			break
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		items = append(items, p)
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// Record applies a view of p and persists the result. The lock is held
// across the write so the stored list always matches the last in-memory one.
func (c *Cache) Record(ctx context.Context, p profile.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = Record(c.items, p, c.capacity)
	storage.Save(ctx, c.store, storage.KeyRecentlyBrowsed, c.items)
}

// Items returns a copy of the cached profiles, most recent first.
func (c *Cache) Items() []profile.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}
