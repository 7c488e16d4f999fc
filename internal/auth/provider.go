// Package auth describes the external authentication/session provider the
// user session core subscribes to. The provider itself is a black box: it
// emits session change events and is able to sign the user out.
package auth

import "context"

// EventType names the reason of a session change.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Metadata is the user metadata attached to a session at sign up.
type Metadata struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Complete reports whether name, phone and role are all present.
func (m Metadata) Complete() bool {
	return m.Name != "" && m.Phone != "" && m.Role != ""
}

// User is the provider's view of the signed in user.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Metadata Metadata `json:"user_metadata"`
}

// Session is an active provider session.
type Session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Event is a session change. A nil Session means there is no active session.
type Event struct {
	Type    EventType
	Session *Session
}

// Handler receives session change events. A provider calls its handlers
// sequentially in arrival order.
type Handler func(ctx context.Context, event Event)

// Unsubscribe detaches a handler. It is idempotent and no handler call is
// in progress or started once it has returned.
type Unsubscribe func()

// Provider is the authentication/session provider.
type Provider interface {
	// OnSessionChange subscribes the handler. The provider delivers the
	// current session as an EventInitialSession event after subscribing.
	OnSessionChange(ctx context.Context, handler Handler) (Unsubscribe, error)
	// SignOut ends the provider session.
	SignOut(ctx context.Context) error
}
