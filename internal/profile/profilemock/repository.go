package profilemock

import (
	"context"
	"maps"
	"sync"

	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/serviceerr"
)

type RepositoryOption func(*Repository)

type Repository struct {
	mu      sync.Mutex
	records map[string]profile.Record

	getErr, createErr error
	gate              chan struct{}
	gated             map[string]bool
	getCalls          int
}

func WithRecord(rec profile.Record) RepositoryOption {
	return func(r *Repository) {
		if id, ok := rec["id"].(string); ok {
			r.records[id] = rec
		}
	}
}
func WithGetError(err error) RepositoryOption {
	return func(r *Repository) { r.getErr = err }
}
func WithCreateError(err error) RepositoryOption {
	return func(r *Repository) { r.createErr = err }
}

// WithGate makes Get for the given user ids block until Release is called.
func WithGate(ids ...string) RepositoryOption {
	return func(r *Repository) {
		for _, id := range ids {
			r.gated[id] = true
		}
	}
}

var _ = profile.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		records: make(map[string]profile.Record),
		gate:    make(chan struct{}),
		gated:   make(map[string]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Release unblocks all gated Get calls.
func (r *Repository) Release() {
	close(r.gate)
}

// TGet is a helper method for tests to read a stored record.
func (r *Repository) TGet(id string) (profile.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return rec, ok
}

// TGetCalls returns the number of Get calls.
func (r *Repository) TGetCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls
}

func (r *Repository) Get(ctx context.Context, id string) (profile.Record, error) {
	r.mu.Lock()
	r.getCalls++
	gated := r.gated[id]
	r.mu.Unlock()

	if gated {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if rec, ok := r.records[id]; ok {
		return maps.Clone(rec), nil
	}
	return nil, serviceerr.ErrNotFound
}

func (r *Repository) Create(_ context.Context, rec profile.Record) (profile.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	id, _ := rec["id"].(string)
	if _, ok := r.records[id]; ok {
		return nil, serviceerr.ErrConflict
	}
	r.records[id] = maps.Clone(rec)
	return maps.Clone(rec), nil
}
