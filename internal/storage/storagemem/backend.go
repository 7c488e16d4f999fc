// Package storagemem is an in-process storage backend. Values live for the
// lifetime of the process.
package storagemem

import (
	"context"
	"slices"

	"github.com/patrickmn/go-cache"

	"github.com/property360/usersession/internal/serviceerr"
	"github.com/property360/usersession/internal/storage"
)

type Backend struct {
	cache *cache.Cache
}

var _ = storage.Backend(&Backend{})

func NewBackend() *Backend {
	return &Backend{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := b.cache.Get(key)
	if !ok {
		return nil, serviceerr.ErrNotFound
	}

	return slices.Clone(v.([]byte)), nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.cache.Set(key, slices.Clone(value), cache.NoExpiration)
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.cache.Delete(key)
	return nil
}
