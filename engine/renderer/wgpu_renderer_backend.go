package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrFrameInFlight is returned by BeginFrame while the previous frame has not been presented.
var ErrFrameInFlight = errors.New("renderer: previous frame surface not yet presented")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *slog.Logger

	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	width         int
	height        int

	gpu      *gpuDevice
	commands *gpuCommands

	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameTarget  *gpuTexture
}

type wgpuRendererBackend interface {
	frameBackend

	// GPUDevice returns the WebGPU device.
	GPUDevice() *wgpu.Device

	// Queue returns the device queue.
	Queue() *wgpu.Queue

	// Adapter returns the adapter the device was requested from.
	Adapter() *wgpu.Adapter

	// Surface returns the presentation surface.
	Surface() *wgpu.Surface

	// SurfaceFormat returns the texture format the surface was configured with.
	SurfaceFormat() wgpu.TextureFormat
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, logger *slog.Logger) (*wgpuRendererBackendImpl, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("renderer: nil surface descriptor")
	}
	runtime.LockOSThread()

	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		logger:      logger,
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		commands:    newCommands(logger),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Frame Graph Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.gpu = &gpuDevice{mu: w.mu, device: d}

	return w, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("renderer: invalid surface size %dx%d", width, height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("renderer: surface reports no formats")
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width, b.height = width, height
	b.logger.Debug("renderer: surface configured", slog.Int("width", width), slog.Int("height", height))
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = convPresentMode(mode)
}

func (b *wgpuRendererBackendImpl) Viewport() fg.Extent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fg.Extent{Width: uint32(b.width), Height: uint32(b.height)}
}

func (b *wgpuRendererBackendImpl) Device() fg.Device {
	return b.gpu
}

func (b *wgpuRendererBackendImpl) Commands() Commands {
	return b.commands
}

// BeginFrame acquires the swapchain texture, wraps it as a graph texture and opens the
// frame's command encoder.
func (b *wgpuRendererBackendImpl) BeginFrame() (fg.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return nil, ErrFrameInFlight
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("renderer: acquire surface texture: %w", err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("renderer: create surface view: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, fmt.Errorf("renderer: create command encoder: %w", err)
	}

	desc := fg.AbsoluteTexture(formatFromWGPU(b.surfaceFormat), uint32(b.width), uint32(b.height))
	desc.Usage = fg.TextureUsageColorAttachment
	b.frameTarget = &gpuTexture{
		label:    "swapchain",
		desc:     desc.Resolve(fg.Extent{Width: uint32(b.width), Height: uint32(b.height)}),
		layout:   fg.LayoutUndefined,
		texture:  surfaceTexture,
		view:     view,
		borrowed: true,
	}
	b.frameSurface = surfaceTexture
	b.frameEncoder = encoder
	b.commands.begin(encoder)

	return b.frameTarget, nil
}

// EndFrame finishes the frame encoder and submits the command buffer. Present must follow.
func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.commands.end()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return nil
	}
	encoder := b.frameEncoder
	b.frameEncoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("renderer: finish frame: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()

	if b.frameTarget != nil {
		b.frameTarget.Release()
		b.frameTarget = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func (b *wgpuRendererBackendImpl) GPUDevice() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}
