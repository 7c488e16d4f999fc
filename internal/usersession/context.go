package usersession

import (
	"context"
	"net/http"

	"github.com/property360/usersession/internal/serviceerr"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey struct{}

// WithFacade returns a copy of ctx carrying f.
func WithFacade(ctx context.Context, f *Facade) context.Context {
	return context.WithValue(ctx, contextKey{}, f)
}

// FromContext returns the Facade carried by ctx. It fails with
// serviceerr.ErrNotInitialised when there is none.
func FromContext(ctx context.Context) (*Facade, error) {
	f, ok := ctx.Value(contextKey{}).(*Facade)
	if !ok || f == nil {
		return nil, serviceerr.ErrNotInitialised
	}
	return f, nil
}

// Middleware injects f into the request context for later handlers.
func Middleware(f *Facade) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithFacade(r.Context(), f)))
		})
	}
}
