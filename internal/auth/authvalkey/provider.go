// Package authvalkey is the auth.Provider backed by the auth service's
// ValKey instance. The service keeps the current access token under
// "<prefix>:auth:session" and announces changes on the "<prefix>:auth:events"
// pub/sub channel.
package authvalkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/auth"
)

var errSubscriptionClosed = errors.New("subscription connection closed")

// Message is the payload published on the events channel.
type Message struct {
	Type        auth.EventType `json:"type"`
	AccessToken string         `json:"access_token,omitempty"`
}

type Provider struct {
	valkey   valkey.Client
	prefix   string
	verifier *Verifier
}

var _ = auth.Provider(&Provider{})

func NewProvider(valkeyClient valkey.Client, prefix string, verifier *Verifier) *Provider {
	return &Provider{
		valkey:   valkeyClient,
		prefix:   strings.TrimSuffix(prefix, ":"),
		verifier: verifier,
	}
}

func (p *Provider) sessionKey() string { return p.prefix + ":auth:session" }
func (p *Provider) channel() string    { return p.prefix + ":auth:events" }

// OnSessionChange subscribes to the events channel and delivers the current
// session as the initial event. The subscription is confirmed before the
// stored session is read, so no change is lost in between. Handlers run on a
// single goroutine.
func (p *Provider) OnSessionChange(ctx context.Context, handler auth.Handler) (auth.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)

	conn, release := p.valkey.Dedicate()
	stop := func() {
		cancel()
		release()
	}

	messages := make(chan Message, 16)
	subscribed := make(chan struct{})
	var confirm sync.Once

	closed := conn.SetPubSubHooks(valkey.PubSubHooks{
		OnSubscription: func(s valkey.PubSubSubscription) {
			if s.Kind == "subscribe" && s.Channel == p.channel() {
				confirm.Do(func() { close(subscribed) })
			}
		},
		OnMessage: func(msg valkey.PubSubMessage) {
			var m Message
			if err := json.Unmarshal([]byte(msg.Message), &m); err != nil {
				slogctx.Warn(ctx, "Ignoring malformed auth event", "error", err)
				return
			}
			select {
			case messages <- m:
			case <-ctx.Done():
			}
		},
	})

	if err := conn.Do(ctx, conn.B().Subscribe().Channel(p.channel()).Build()).Error(); err != nil {
		stop()
		return nil, fmt.Errorf("executing subscribe command: %w", err)
	}

	select {
	case <-subscribed:
	case err := <-closed:
		stop()
		return nil, fmt.Errorf("subscribing to auth events: %w", errors.Join(err, errSubscriptionClosed))
	case <-ctx.Done():
		stop()
		return nil, ctx.Err()
	}

	initial, err := p.current(ctx)
	if err != nil {
		stop()
		return nil, err
	}

	var wg sync.WaitGroup
	wg.Go(func() {
		handler(ctx, auth.Event{Type: auth.EventInitialSession, Session: initial})

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-closed:
				if ctx.Err() == nil {
					slogctx.Error(ctx, "Auth event subscription ended", "error", err)
				}
				return
			case m := <-messages:
				event := p.toEvent(ctx, m)
				if ctx.Err() != nil {
					return
				}
				handler(ctx, event)
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			wg.Wait()
		})
	}, nil
}

// SignOut removes the stored session and announces it.
func (p *Provider) SignOut(ctx context.Context) error {
	var errs []error
	if err := p.valkey.Do(ctx, p.valkey.B().Del().Key(p.sessionKey()).Build()).Error(); err != nil {
		errs = append(errs, fmt.Errorf("executing del command: %w", err))
	}

	if err := p.publish(ctx, Message{Type: auth.EventSignedOut}); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SignIn stores the access token as the current session and announces it.
// The token is verified first.
func (p *Provider) SignIn(ctx context.Context, accessToken string) error {
	if _, err := p.verifier.Verify(accessToken); err != nil {
		return err
	}

	if err := p.valkey.Do(ctx, p.valkey.B().Set().Key(p.sessionKey()).Value(accessToken).Build()).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return p.publish(ctx, Message{Type: auth.EventSignedIn, AccessToken: accessToken})
}

func (p *Provider) publish(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	cmd := p.valkey.B().Publish().Channel(p.channel()).Message(string(payload)).Build()
	if err := p.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing publish command: %w", err)
	}

	return nil
}

// current reads the stored session. A missing or invalid token means there
// is no active session.
func (p *Provider) current(ctx context.Context) (*auth.Session, error) {
	token, err := p.valkey.Do(ctx, p.valkey.B().Get().Key(p.sessionKey()).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("executing get command: %w", err)
	}

	s, err := p.verifier.Verify(token)
	if err != nil {
		slogctx.Warn(ctx, "Stored session token is not valid", "error", err)
		return nil, nil
	}

	return &s, nil
}

func (p *Provider) toEvent(ctx context.Context, m Message) auth.Event {
	if m.AccessToken == "" {
		return auth.Event{Type: m.Type}
	}

	s, err := p.verifier.Verify(m.AccessToken)
	if err != nil {
		slogctx.Warn(ctx, "Auth event carries an invalid token", "type", m.Type, "error", err)
		return auth.Event{Type: m.Type}
	}

	return auth.Event{Type: m.Type, Session: &s}
}
