package framegraph

import "log/slog"

// BuilderOption is a functional option applied to a builder during construction via NewBuilder.
type BuilderOption func(*builder)

// WithLogger sets the logger used by the builder and by the default pool it creates.
// When not specified the package logger from Logger is used.
//
// Parameters:
//   - l: the logger to use
//
// Returns:
//   - BuilderOption: a function that applies the logger option to a builder
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *builder) {
		b.logger = l
	}
}

// WithPool makes the builder allocate from an existing pool instead of creating one. Sharing
// a pool between builders shares its name-keyed physical objects.
//
// Parameters:
//   - pool: the ResourcePool to allocate from
//
// Returns:
//   - BuilderOption: a function that applies the pool option to a builder
func WithPool(pool ResourcePool) BuilderOption {
	return func(b *builder) {
		b.pool = pool
	}
}
