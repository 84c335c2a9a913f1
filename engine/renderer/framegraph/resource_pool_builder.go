package framegraph

import "log/slog"

// ResourcePoolBuilderOption is a functional option applied to a pool during construction via NewResourcePool.
type ResourcePoolBuilderOption func(*resourcePool)

// WithPoolLogger sets the logger used for allocation and reuse records.
// When not specified the package logger from Logger is used.
//
// Parameters:
//   - l: the logger to use
//
// Returns:
//   - ResourcePoolBuilderOption: a function that applies the logger option to a pool
func WithPoolLogger(l *slog.Logger) ResourcePoolBuilderOption {
	return func(p *resourcePool) {
		p.logger = l
	}
}
