package profile

import (
	"context"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/auth"
	"github.com/property360/usersession/internal/serviceerr"
)

// Resolver turns a provider session into a Profile, creating the profile
// record on first use.
type Resolver struct {
	repository Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{
		repository: repo,
	}
}

// Resolve reads the profile of the session user. When no record exists it is
// created from the session metadata, which then must carry name, phone and
// role. Creation failures are reported as serviceerr.ErrProfileCreation.
func (r *Resolver) Resolve(ctx context.Context, sess auth.Session) (Profile, error) {
	user := sess.User
	ctx = slogctx.With(ctx, "user_id", user.ID)

	rec, err := r.repository.Get(ctx, user.ID)
	if err == nil {
		return FromRecord(rec, user.Email), nil
	}

	if !errors.Is(err, serviceerr.ErrNotFound) {
		return Profile{}, fmt.Errorf("getting profile: %w", err)
	}

	slogctx.Info(ctx, "Profile not found, creating it from the session metadata")

	if !user.Metadata.Complete() {
		return Profile{}, errors.Join(serviceerr.ErrProfileCreation, serviceerr.ErrIncompleteMetadata)
	}

	created, err := r.repository.Create(ctx, ToRecord(Profile{
		ID:    user.ID,
		Name:  user.Metadata.Name,
		Phone: user.Metadata.Phone,
		Role:  user.Metadata.Role,
	}))
	if err != nil {
		return Profile{}, errors.Join(serviceerr.ErrProfileCreation, fmt.Errorf("creating profile: %w", err))
	}

	return FromRecord(created, user.Email), nil
}
