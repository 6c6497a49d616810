package store

import (
	"log/slog"

	"github.com/agubler/store/metric"
)

// Option configures a store using the functional options pattern
type Option[T any] func(*storeOptions)

// storeOptions holds configuration applied at store construction. Stats are
// always collected; Prometheus export and logging destinations are optional.
type storeOptions struct {
	name       string
	logger     *slog.Logger
	metricsReg *metric.Registry
}

// WithName sets the store's name, used as the logging attribute and the
// Prometheus label for its metrics. Defaults to "store".
func WithName[T any](name string) Option[T] {
	return func(opts *storeOptions) {
		if name != "" {
			opts.name = name
		}
	}
}

// WithLogger sets the structured logger for store operations. Defaults to
// slog.Default(). Derived views inherit their source's logger.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(opts *storeOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics export for the store's statistics.
// Registration failures surface from New.
func WithMetrics[T any](registry *metric.Registry) Option[T] {
	return func(opts *storeOptions) {
		opts.metricsReg = registry
	}
}

// applyOptions applies functional options over the defaults
func applyOptions[T any](options ...Option[T]) *storeOptions {
	opts := &storeOptions{
		name:   "store",
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
