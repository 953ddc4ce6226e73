package store

import (
	"context"
	"log/slog"
)

// WithFallback runs op and returns fallback if it fails. Failures are logged
// at WARN and never returned.
func WithFallback[T any](ctx context.Context, name string, op func(context.Context) (T, error), fallback T) T {
	v, err := op(ctx)
	if err != nil {
		slog.Warn("using fallback", slog.String("op", name), slog.String("error", err.Error()))
		return fallback
	}
	return v
}

// Try runs op and logs a failure at WARN. It reports whether op succeeded.
func Try(ctx context.Context, name string, op func(context.Context) error) bool {
	return WithFallback(ctx, name, func(ctx context.Context) (bool, error) {
		if err := op(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, false)
}
