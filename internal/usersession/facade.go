// Package usersession is the user session facade used by the rendering layer.
// It composes the local store, the recency cache, the shortlist and the
// session synchronizer into one unit with an explicit lifecycle: Mount seeds
// the caches and starts following the provider, Unmount stops it. Every call
// on a Facade that is not mounted fails with serviceerr.ErrNotInitialised.
package usersession

import (
	"context"
	"errors"
	"fmt"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/auth"
	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/recent"
	"github.com/property360/usersession/internal/serviceerr"
	"github.com/property360/usersession/internal/shortlist"
	"github.com/property360/usersession/internal/storage"
	"github.com/property360/usersession/internal/synchronizer"
)

var ErrAlreadyMounted = errors.New("user session is already mounted")

// Snapshot is the externally observable session state.
type Snapshot struct {
	CurrentUser    *profile.Profile  `json:"currentUser"`
	IsLoading      bool              `json:"isLoading"`
	RecentlyViewed []profile.Profile `json:"recentlyViewed"`
	Shortlist      []profile.Profile `json:"shortlist"`
}

// Listener is notified after every change of the session state or caches.
// Listeners run on a dedicated goroutine, one snapshot at a time and in
// change order. They may call any Facade method, Unmount included.
type Listener func(ctx context.Context, s Snapshot)

type Option func(*Facade)

// WithCapacity sets the recency cache capacity.
func WithCapacity(n int) Option {
	return func(f *Facade) { f.capacity = n }
}

func WithErrorReporter(r synchronizer.ErrorReporter) Option {
	return func(f *Facade) { f.reporter = r }
}

// WithCurrentUserMirror writes the committed user to the local store and
// shows the stored user while the first session event is resolving.
func WithCurrentUserMirror(enabled bool) Option {
	return func(f *Facade) { f.mirror = enabled }
}

type Facade struct {
	store    *storage.Store
	provider auth.Provider
	resolver synchronizer.Resolver
	reporter synchronizer.ErrorReporter
	capacity int
	mirror   bool

	recent    *recent.Cache
	shortlist *shortlist.Set

	mu        sync.Mutex
	mounted   bool
	syncer    *synchronizer.Synchronizer
	events    *dispatcher
	seed      *profile.Profile
	listeners map[int]Listener
	nextID    int
}

func New(store *storage.Store, provider auth.Provider, resolver synchronizer.Resolver, opts ...Option) *Facade {
	f := &Facade{
		store:     store,
		provider:  provider,
		resolver:  resolver,
		capacity:  recent.DefaultCapacity,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	f.recent = recent.NewCache(store, f.capacity)
	f.shortlist = shortlist.NewSet(store)

	return f
}

// Mount seeds the caches from the local store and starts following the
// provider. The session is Loading until the first event resolves.
func (f *Facade) Mount(ctx context.Context) error {
	f.mu.Lock()
	if f.mounted {
		f.mu.Unlock()
		return ErrAlreadyMounted
	}

	f.recent.Initialize(ctx)
	f.shortlist.Initialize(ctx)

	f.seed = nil
	if f.mirror {
		if p, ok := storage.Load[profile.Profile](ctx, f.store, storage.KeyCurrentUser); ok && p.ID != "" {
			f.seed = &p
		}
	}

	syncer := synchronizer.New(f.provider, f.resolver,
		synchronizer.WithErrorReporter(f.reporter),
		synchronizer.WithCommitHook(f.committed),
	)
	f.syncer = syncer
	f.events = newDispatcher()
	f.mounted = true
	f.mu.Unlock()

	go f.events.run()

	slogctx.Info(ctx, "Mounted the user session")

	if err := syncer.Start(ctx); err != nil {
		return fmt.Errorf("starting the session synchronizer: %w", err)
	}

	return nil
}

// Unmount stops following the provider. It is safe to call more than once
// and from within a Listener. Snapshots already queued are still delivered.
func (f *Facade) Unmount() {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return
	}
	f.mounted = false
	syncer, events := f.syncer, f.events
	f.mu.Unlock()

	syncer.Stop()
	events.close()
}

func (f *Facade) active() (*synchronizer.Synchronizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mounted {
		return nil, serviceerr.ErrNotInitialised
	}
	return f.syncer, nil
}

// CurrentUser returns the authenticated profile, or nil.
func (f *Facade) CurrentUser() (*profile.Profile, error) {
	s, err := f.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.CurrentUser, nil
}

func (f *Facade) IsLoading() (bool, error) {
	syncer, err := f.active()
	if err != nil {
		return false, err
	}
	return syncer.State().Status == synchronizer.Loading, nil
}

// SetCurrentUser with nil logs out. A non-nil profile replaces the
// authenticated user's attributes; its id must match and its email is
// ignored.
func (f *Facade) SetCurrentUser(ctx context.Context, p *profile.Profile) error {
	if p == nil {
		return f.Logout(ctx)
	}

	syncer, err := f.active()
	if err != nil {
		return err
	}
	return syncer.Update(ctx, *p)
}

func (f *Facade) RecentlyViewed() ([]profile.Profile, error) {
	if _, err := f.active(); err != nil {
		return nil, err
	}
	return f.recent.Items(), nil
}

func (f *Facade) RecordView(ctx context.Context, p profile.Profile) error {
	if _, err := f.active(); err != nil {
		return err
	}
	f.recent.Record(ctx, p)
	f.changed(ctx)
	return nil
}

func (f *Facade) Shortlist() ([]profile.Profile, error) {
	if _, err := f.active(); err != nil {
		return nil, err
	}
	return f.shortlist.Items(), nil
}

func (f *Facade) AddToShortlist(ctx context.Context, p profile.Profile) error {
	if _, err := f.active(); err != nil {
		return err
	}
	f.shortlist.Add(ctx, p)
	f.changed(ctx)
	return nil
}

func (f *Facade) RemoveFromShortlist(ctx context.Context, id string) error {
	if _, err := f.active(); err != nil {
		return err
	}
	f.shortlist.Remove(ctx, id)
	f.changed(ctx)
	return nil
}

func (f *Facade) IsShortlisted(id string) (bool, error) {
	if _, err := f.active(); err != nil {
		return false, err
	}
	return f.shortlist.Contains(id), nil
}

// Logout signs out from the provider. The session is Unauthenticated
// afterwards even when the provider call fails; that error is returned.
func (f *Facade) Logout(ctx context.Context) error {
	syncer, err := f.active()
	if err != nil {
		return err
	}

	syncer.Invalidate(ctx)

	if err := f.provider.SignOut(ctx); err != nil {
		slogctx.Error(ctx, "Signing out from the provider failed", "error", err)
		return fmt.Errorf("signing out: %w", err)
	}

	slogctx.Info(ctx, "Signed out")
	return nil
}

// Snapshot returns the whole observable state at once.
func (f *Facade) Snapshot() (Snapshot, error) {
	syncer, err := f.active()
	if err != nil {
		return Snapshot{}, err
	}
	return f.snapshot(syncer.State()), nil
}

// Subscribe registers l for change notifications and returns a function that
// removes it.
func (f *Facade) Subscribe(l Listener) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mounted {
		return nil, serviceerr.ErrNotInitialised
	}

	id := f.nextID
	f.nextID++
	f.listeners[id] = l

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}, nil
}

func (f *Facade) snapshot(st synchronizer.State) Snapshot {
	s := Snapshot{
		IsLoading:      st.Status == synchronizer.Loading,
		RecentlyViewed: f.recent.Items(),
		Shortlist:      f.shortlist.Items(),
	}

	if st.Profile != nil {
		p := *st.Profile
		s.CurrentUser = &p
	} else if s.IsLoading {
		f.mu.Lock()
		if f.seed != nil {
			p := *f.seed
			s.CurrentUser = &p
		}
		f.mu.Unlock()
	}

	return s
}

// committed runs for every synchronizer state change, in commit order and
// under the synchronizer's commit lock. It must only enqueue notifications.
func (f *Facade) committed(ctx context.Context, st synchronizer.State) {
	if f.mirror {
		switch st.Status {
		case synchronizer.Authenticated:
			storage.Save(ctx, f.store, storage.KeyCurrentUser, st.Profile)
		case synchronizer.Unauthenticated:
			f.store.Remove(ctx, storage.KeyCurrentUser)
		}
	}

	if st.Status != synchronizer.Loading {
		f.mu.Lock()
		f.seed = nil
		f.mu.Unlock()
	}

	f.publish(ctx, f.snapshot(st))
}

func (f *Facade) changed(ctx context.Context) {
	syncer, err := f.active()
	if err != nil {
		return
	}
	f.publish(ctx, f.snapshot(syncer.State()))
}

// publish queues s for the listeners registered right now.
func (f *Facade) publish(ctx context.Context, s Snapshot) {
	f.mu.Lock()
	events := f.events
	listeners := make([]Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()

	if events != nil {
		events.push(ctx, s, listeners)
	}
}
