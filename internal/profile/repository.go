package profile

import "context"

// Repository is the remote profile store.
type Repository interface {
	// Get returns the record for the user id or serviceerr.ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Create inserts a record and returns the stored row.
	Create(ctx context.Context, rec Record) (Record, error)
}
