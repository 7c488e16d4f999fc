package serviceerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/property360/usersession/internal/serviceerr"
)

func TestErrors_Wrapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{
			name:   "Wrapped not found",
			err:    fmt.Errorf("selecting profile: %w", serviceerr.ErrNotFound),
			target: serviceerr.ErrNotFound,
		},
		{
			name:   "Joined profile creation failure",
			err:    errors.Join(serviceerr.ErrProfileCreation, serviceerr.ErrIncompleteMetadata),
			target: serviceerr.ErrIncompleteMetadata,
		},
		{
			name:   "Double wrapped configuration error",
			err:    fmt.Errorf("facade: %w", fmt.Errorf("reading user: %w", serviceerr.ErrNotInitialised)),
			target: serviceerr.ErrNotInitialised,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		serviceerr.ErrConflict,
		serviceerr.ErrNotFound,
		serviceerr.ErrNotInitialised,
		serviceerr.ErrNotAuthenticated,
		serviceerr.ErrProfileIDMismatch,
		serviceerr.ErrIncompleteMetadata,
		serviceerr.ErrProfileCreation,
		serviceerr.ErrInvalidToken,
	}

	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}
