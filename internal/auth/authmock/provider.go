// Package authmock is an in-memory auth.Provider for tests.
package authmock

import (
	"context"
	"sync"

	"github.com/property360/usersession/internal/auth"
)

type ProviderOption func(*Provider)

// WithSession sets the session delivered as the initial event.
func WithSession(s auth.Session) ProviderOption {
	return func(p *Provider) { p.current = &s }
}
func WithSubscribeError(err error) ProviderOption {
	return func(p *Provider) { p.subscribeErr = err }
}
func WithSignOutError(err error) ProviderOption {
	return func(p *Provider) { p.signOutErr = err }
}

type listener struct {
	handler auth.Handler
	ctx     context.Context
}

// Provider delivers events synchronously from Emit, in call order.
type Provider struct {
	// dispatch serialises handler calls; mu guards the fields below.
	dispatch sync.Mutex
	mu       sync.Mutex

	current      *auth.Session
	listeners    map[int]listener
	nextID       int
	subscribeErr error
	signOutErr   error
	signOuts     int
}

var _ = auth.Provider(&Provider{})

func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		listeners: make(map[int]listener),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Provider) OnSessionChange(ctx context.Context, handler auth.Handler) (auth.Unsubscribe, error) {
	p.dispatch.Lock()
	defer p.dispatch.Unlock()

	p.mu.Lock()
	if p.subscribeErr != nil {
		err := p.subscribeErr
		p.mu.Unlock()
		return nil, err
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener{handler: handler, ctx: ctx}
	initial := p.current
	p.mu.Unlock()

	handler(ctx, auth.Event{Type: auth.EventInitialSession, Session: clone(initial)})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.dispatch.Lock()
			defer p.dispatch.Unlock()
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}, nil
}

// Emit records the event session as current and delivers the event to every
// subscribed handler.
func (p *Provider) Emit(event auth.Event) {
	p.dispatch.Lock()
	defer p.dispatch.Unlock()

	p.mu.Lock()
	p.current = clone(event.Session)
	listeners := make([]listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l.handler(l.ctx, auth.Event{Type: event.Type, Session: clone(event.Session)})
	}
}

// SignIn emits a SIGNED_IN event for s.
func (p *Provider) SignIn(s auth.Session) {
	p.Emit(auth.Event{Type: auth.EventSignedIn, Session: &s})
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.signOuts++
	err := p.signOutErr
	p.mu.Unlock()

	if err != nil {
		return err
	}

	p.Emit(auth.Event{Type: auth.EventSignedOut})
	return nil
}

// TListeners returns the number of subscribed handlers.
func (p *Provider) TListeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// TSignOuts returns the number of SignOut calls.
func (p *Provider) TSignOuts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts
}

func clone(s *auth.Session) *auth.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
