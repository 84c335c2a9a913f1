package framegraph

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards every record. Enabled returns false so
// callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the default logger used by builders and pools that were not given
// one through WithLogger / WithPoolLogger. By default the package logs nothing.
// Passing nil restores the silent default.
//
// Log levels used by framegraph:
//   - [slog.LevelDebug]: compile summaries, pool allocations and reuse
//   - [slog.LevelWarn]: duplicate names, declarations against unknown handles
//   - [slog.LevelError]: compile failures (no passes, no output, cycles, allocation errors)
//
// Parameters:
//   - l: the logger to use
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the package default logger.
//
// Returns:
//   - *slog.Logger: the current default logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
