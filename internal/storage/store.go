// Package storage is the local durable key-value store used to mirror the
// user session caches. The underlying backend is treated as unreliable: it
// may be missing, fail, or hold stale or malformed data. None of that is ever
// surfaced past the Store.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/serviceerr"
)

// Keys of the durable store. Each key is owned by exactly one component.
const (
	KeyRecentlyBrowsed = "recentlyBrowsed"
	KeyShortlisted     = "shortlisted"
	KeyCurrentUser     = "currentUser"
)

// Backend is a durable byte store. Get returns serviceerr.ErrNotFound for
// missing keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store adapts a Backend to an API that never fails loudly.
type Store struct {
	backend Backend
}

// New creates a Store. A nil backend behaves like unavailable storage.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Read returns the value stored under key. Any fault reads as absent.
func (s *Store) Read(ctx context.Context, key string) (value []byte, ok bool) {
	if s == nil || s.backend == nil {
		return nil, false
	}

	defer recoverFault(ctx, "read", key, func() { value, ok = nil, false })

	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, serviceerr.ErrNotFound) {
			slogctx.Warn(ctx, "Reading from local store failed", "key", key, "error", err)
		}
		return nil, false
	}

	return value, true
}

// Write stores value under key and reports whether it succeeded.
func (s *Store) Write(ctx context.Context, key string, value []byte) (ok bool) {
	if s == nil || s.backend == nil {
		return false
	}

	defer recoverFault(ctx, "write", key, func() { ok = false })

	if err := s.backend.Set(ctx, key, value); err != nil {
		slogctx.Warn(ctx, "Writing to local store failed", "key", key, "error", err)
		return false
	}

	return true
}

// Remove deletes key and reports whether it succeeded.
func (s *Store) Remove(ctx context.Context, key string) (ok bool) {
	if s == nil || s.backend == nil {
		return false
	}

	defer recoverFault(ctx, "remove", key, func() { ok = false })

	if err := s.backend.Delete(ctx, key); err != nil {
		slogctx.Warn(ctx, "Removing from local store failed", "key", key, "error", err)
		return false
	}

	return true
}

func recoverFault(ctx context.Context, op, key string, reset func()) {
	if r := recover(); r != nil {
		slogctx.Error(ctx, "Local store panicked", "operation", op, "key", key, "panic", fmt.Sprint(r))
		reset()
	}
}

// Load decodes the JSON value stored under key. A value that cannot be
// decoded is treated as absent.
func Load[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var v T

	data, ok := s.Read(ctx, key)
	if !ok {
		return v, false
	}

	if err := json.Unmarshal(data, &v); err != nil {
		slogctx.Warn(ctx, "Discarding malformed local store value", "key", key, "error", err)
		var zero T
		return zero, false
	}

	return v, true
}

// Save encodes v as JSON and writes it under key.
func Save(ctx context.Context, s *Store, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		slogctx.Warn(ctx, "Encoding local store value failed", "key", key, "error", err)
		return false
	}

	return s.Write(ctx, key, data)
}
