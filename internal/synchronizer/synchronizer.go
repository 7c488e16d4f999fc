// Package synchronizer follows the provider's session change events and turns
// each of them into a committed session State.
//
// Events are handled in arrival order. Profile resolution runs in the
// background and only the resolution of the latest event may commit: every
// event bumps a generation counter and a result whose generation is no longer
// current is dropped.
package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/auth"
	"github.com/property360/usersession/internal/profile"
	"github.com/property360/usersession/internal/serviceerr"
)

// ErrAlreadyStarted is returned by Start on a Synchronizer that was started before.
var ErrAlreadyStarted = errors.New("synchronizer already started")

// Resolver resolves a provider session into a profile.
type Resolver interface {
	Resolve(ctx context.Context, sess auth.Session) (profile.Profile, error)
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithErrorReporter replaces the LogReporter that receives resolution failures.
func WithErrorReporter(r ErrorReporter) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithCommitHook registers a function called after every state change, in
// commit order. The hook runs with the commit lock held: it must not block and
// must not call back into the Synchronizer except for State.
func WithCommitHook(hook func(ctx context.Context, st State)) Option {
	return func(s *Synchronizer) { s.hook = hook }
}

// Synchronizer turns provider session events into a committed State.
type Synchronizer struct {
	provider auth.Provider
	resolver Resolver
	reporter ErrorReporter
	hook     func(ctx context.Context, st State)

	// commitMu orders state changes and hook calls; mu guards the fields below.
	commitMu sync.Mutex
	mu       sync.Mutex

	state       State
	generation  uint64
	started     bool
	stopped     bool
	unsubscribe auth.Unsubscribe

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Synchronizer in the Loading state. It does nothing until Start.
func New(provider auth.Provider, resolver Resolver, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		provider: provider,
		resolver: resolver,
		reporter: LogReporter{},
		state:    loading(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start moves to Loading and subscribes to the provider. A failed
// subscription leaves the session Unauthenticated and is returned.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	gen := s.next(s.ctx)

	unsubscribe, err := s.provider.OnSessionChange(s.ctx, s.handle)
	if err != nil {
		err = fmt.Errorf("subscribing to session changes: %w", err)
		s.commit(s.ctx, gen, unauthenticated())
		s.reporter.Report(s.ctx, err)
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		unsubscribe()
		return nil
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	return nil
}

// Stop unsubscribes from the provider and waits for in-flight resolutions.
// Nothing is committed once Stop has returned. It is safe to call Stop more
// than once.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		unsubscribe := s.unsubscribe
		cancel := s.cancel
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
	})
}

// Invalidate discards in-flight resolutions and forces Unauthenticated.
func (s *Synchronizer) Invalidate(ctx context.Context) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.generation++
	s.state = unauthenticated()
	st := s.state
	s.mu.Unlock()

	s.notify(ctx, st)
}

// Update replaces the authenticated profile. The id must stay the same and
// the email is kept from the provider session.
func (s *Synchronizer) Update(ctx context.Context, p profile.Profile) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.state.Status != Authenticated || s.state.Profile == nil {
		s.mu.Unlock()
		return serviceerr.ErrNotAuthenticated
	}
	if s.state.Profile.ID != p.ID {
		s.mu.Unlock()
		return serviceerr.ErrProfileIDMismatch
	}
	p.Email = s.state.Profile.Email
	s.state = authenticated(p)
	st := s.state
	s.mu.Unlock()

	s.notify(ctx, st)
	return nil
}

// State returns the committed session state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st.Profile != nil {
		p := *st.Profile
		st.Profile = &p
	}
	return st
}

func (s *Synchronizer) handle(ctx context.Context, event auth.Event) {
	gen := s.next(ctx)
	if gen == 0 {
		return
	}

	if event.Session == nil {
		slogctx.Debug(ctx, "Session change without an active session", "event", event.Type)
		s.commit(ctx, gen, unauthenticated())
		return
	}

	sess := *event.Session
	ctx = slogctx.With(ctx, "user_id", sess.User.ID, "event", string(event.Type))

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		p, err := s.resolver.Resolve(ctx, sess)
		if err != nil {
			if s.commit(ctx, gen, unauthenticated()) {
				s.reporter.Report(ctx, err)
			}
			return
		}

		if !s.commit(ctx, gen, authenticated(p)) {
			slogctx.Debug(ctx, "Discarding a stale session resolution")
		}
	}()
}

// next starts a new generation in the Loading state. It returns 0 once the
// synchronizer is stopped.
func (s *Synchronizer) next(ctx context.Context) uint64 {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0
	}
	s.generation++
	gen := s.generation
	s.state = loading()
	st := s.state
	s.mu.Unlock()

	s.notify(ctx, st)
	return gen
}

// commit stores st if gen is still the latest generation.
func (s *Synchronizer) commit(ctx context.Context, gen uint64, st State) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.state = st
	s.mu.Unlock()

	s.notify(ctx, st)
	return true
}

func (s *Synchronizer) notify(ctx context.Context, st State) {
	if s.hook != nil {
		s.hook(ctx, st)
	}
}
