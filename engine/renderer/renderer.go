package renderer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/Carmen-Shannon/oxy-graph/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	logger *slog.Logger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer owns the GPU device and the presentation surface, and hands a frame graph the
// collaborators it executes against.
//
// A frame is BeginFrame, graph execution into Commands, EndFrame, then Present.
type Renderer interface {
	// Resize reconfigures the surface for a new size. Zero sizes, as reported while the window
	// is minimized, are ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	Resize(width, height int) error

	// SetPresentMode changes the present mode used by the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Viewport returns the configured surface size.
	//
	// Returns:
	//   - framegraph.Extent: the surface size in pixels
	Viewport() framegraph.Extent

	// Device returns the device frame graph pools allocate from.
	//
	// Returns:
	//   - framegraph.Device: the device
	Device() framegraph.Device

	// Commands returns the command context frame graphs execute into.
	//
	// Returns:
	//   - Commands: the command context of the current frame
	Commands() Commands

	// BeginFrame acquires the swapchain texture and opens the frame's command encoder.
	// The returned texture is valid until Present and is meant to be registered as an external
	// graph resource.
	//
	// Returns:
	//   - framegraph.Texture: the swapchain texture
	//   - error: an error if the texture or encoder could not be acquired
	BeginFrame() (framegraph.Texture, error)

	// EndFrame finishes the command encoder and submits it to the queue.
	// Does not present the surface, call Present afterwards.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Present displays the frame acquired by BeginFrame and releases the swapchain texture.
	Present()

	// Backend returns the GPU backend for callers that need the raw WebGPU objects.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// Release destroys the device and surface.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the surface of the given window.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - w: the window providing the surface descriptor and initial size
//   - options: functional options applied before the device is requested
//
// Returns:
//   - Renderer: the renderer with its surface configured to the window size
//   - error: an error if no adapter, device or surface could be created
func NewRenderer(backendType RendererBackendType, w window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		logger:      framegraph.Logger(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		b, err := newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter, r.logger)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if err := r.backend.ConfigureSurface(w.Width(), w.Height()); err != nil {
		r.backend.Release()
		return nil, fmt.Errorf("renderer: configure surface: %w", err)
	}
	return r, nil
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Viewport() framegraph.Extent {
	return r.backend.Viewport()
}

func (r *renderer) Device() framegraph.Device {
	return r.backend.Device()
}

func (r *renderer) Commands() Commands {
	return r.backend.Commands()
}

func (r *renderer) BeginFrame() (framegraph.Texture, error) {
	return r.backend.BeginFrame()
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Release() {
	r.backend.Release()
}
