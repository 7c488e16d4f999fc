package serviceerr

import "errors"

var ErrConflict = errors.New("already exists")
var ErrNotFound = errors.New("not found")

// ErrNotInitialised is the configuration error returned when the session
// facade is used outside of an active (mounted) instance.
var ErrNotInitialised = errors.New("user session is not initialised")

var ErrNotAuthenticated = errors.New("not authenticated")
var ErrProfileIDMismatch = errors.New("profile id does not match the current user")
var ErrIncompleteMetadata = errors.New("session metadata is incomplete")
var ErrProfileCreation = errors.New("profile creation failed")
var ErrInvalidToken = errors.New("invalid session token")
