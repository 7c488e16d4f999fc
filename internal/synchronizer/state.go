package synchronizer

import "github.com/property360/usersession/internal/profile"

// Status is the phase of the session.
type Status int

const (
	// Unauthenticated means there is no session or it could not be resolved.
	Unauthenticated Status = iota
	// Loading means a session event is being resolved into a profile.
	Loading
	// Authenticated means the session resolved to a profile.
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the session state. Profile is set only when Authenticated.
type State struct {
	Status  Status           `json:"status"`
	Profile *profile.Profile `json:"profile,omitempty"`
}

func unauthenticated() State { return State{Status: Unauthenticated} }
func loading() State         { return State{Status: Loading} }

func authenticated(p profile.Profile) State {
	return State{Status: Authenticated, Profile: &p}
}
