package synchronizer

import (
	"context"

	slogctx "github.com/veqryn/slog-context"
)

// ErrorReporter receives session resolution failures.
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

// ReporterFunc adapts a function to ErrorReporter.
type ReporterFunc func(ctx context.Context, err error)

func (f ReporterFunc) Report(ctx context.Context, err error) { f(ctx, err) }

// LogReporter logs failures at error level.
type LogReporter struct{}

// Report logs err.
func (LogReporter) Report(ctx context.Context, err error) {
	slogctx.Error(ctx, "Resolving the user session failed", "error", err)
}
