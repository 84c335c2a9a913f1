package window

import "github.com/Carmen-Shannon/oxy-graph/engine/config"

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size. It is clamped to the size limits.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width, w.height = width, height
	}
}

// WithSizeLimits sets the minimum and maximum window size enforced while resizing.
// A zero maximum leaves that dimension unbounded.
//
// Parameters:
//   - minWidth, minHeight: minimum size in pixels
//   - maxWidth, maxHeight: maximum size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = minWidth, minHeight
		w.maxWidth, w.maxHeight = maxWidth, maxHeight
	}
}

// WithConfig applies the [window] section of an engine configuration.
//
// Parameters:
//   - c: the window configuration
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithConfig(c config.Window) WindowBuilderOption {
	return func(w *engineWindow) {
		WithTitle(c.Title)(w)
		WithSizeLimits(c.MinWidth, c.MinHeight, c.MaxWidth, c.MaxHeight)(w)
		WithSize(c.Width, c.Height)(w)
	}
}
