package renderer

import (
	"fmt"
	"strings"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps "vsync" or "uncapped" to a PresentMode.
//
// Parameters:
//   - s: the mode name, case-insensitive
//
// Returns:
//   - PresentMode: the parsed mode
//   - error: an error if s names no mode
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(s) {
	case "vsync":
		return PresentModeVSync, nil
	case "uncapped":
		return PresentModeUncapped, nil
	}
	return 0, fmt.Errorf("renderer: unknown present mode %q", s)
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

// frameBackend is the part of a backend the Renderer drives each frame.
type frameBackend interface {
	ConfigureSurface(width, height int) error
	SetPresentMode(mode PresentMode)
	Viewport() fg.Extent
	Device() fg.Device
	Commands() Commands
	BeginFrame() (fg.Texture, error)
	EndFrame() error
	Present()
	Release()
}
