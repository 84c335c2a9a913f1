package renderer

import (
	"fmt"
	"sync"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/cogentcore/webgpu/wgpu"
)

// gpuBuffer is a framegraph.Buffer backed by a wgpu.Buffer.
type gpuBuffer struct {
	label  string
	desc   fg.BufferDesc
	buffer *wgpu.Buffer
}

var _ fg.Buffer = &gpuBuffer{}

func (b *gpuBuffer) Label() string        { return b.label }
func (b *gpuBuffer) Desc() fg.BufferDesc  { return b.desc }
func (b *gpuBuffer) Buffer() *wgpu.Buffer { return b.buffer }

func (b *gpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

// gpuTexture is a framegraph.Texture backed by a wgpu.Texture and its default view.
// Swapchain textures are borrowed: Release only drops the view and Present releases the texture.
type gpuTexture struct {
	label    string
	desc     fg.TextureDesc
	layout   fg.Layout
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	borrowed bool
}

var _ fg.Texture = &gpuTexture{}

func (t *gpuTexture) Label() string                  { return t.label }
func (t *gpuTexture) Desc() fg.TextureDesc           { return t.desc }
func (t *gpuTexture) Layout() fg.Layout              { return t.layout }
func (t *gpuTexture) SetLayout(layout fg.Layout)     { t.layout = layout }
func (t *gpuTexture) Texture() *wgpu.Texture         { return t.texture }
func (t *gpuTexture) TextureView() *wgpu.TextureView { return t.view }

func (t *gpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil && !t.borrowed {
		t.texture.Release()
	}
	t.texture = nil
}

// Buffer returns the wgpu.Buffer behind a graph buffer, or nil if b was not created by this package.
//
// Parameters:
//   - b: a physical buffer, usually from PassContext.Buffer
//
// Returns:
//   - *wgpu.Buffer: the WebGPU buffer
func Buffer(b fg.Buffer) *wgpu.Buffer {
	if gb, ok := b.(*gpuBuffer); ok {
		return gb.buffer
	}
	return nil
}

// TextureView returns the default view of a graph texture, or nil if t was not created by this package.
//
// Parameters:
//   - t: a physical texture, usually from PassContext.Texture
//
// Returns:
//   - *wgpu.TextureView: the default view
func TextureView(t fg.Texture) *wgpu.TextureView {
	if gt, ok := t.(*gpuTexture); ok {
		return gt.view
	}
	return nil
}

// gpuDevice creates pool resources on a wgpu.Device.
type gpuDevice struct {
	mu     *sync.Mutex
	device *wgpu.Device
}

var _ fg.Device = &gpuDevice{}

func (d *gpuDevice) CreateBuffer(label string, desc fg.BufferDesc) (fg.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  desc.Size,
		Usage: convBufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create buffer %q: %w", label, err)
	}
	return &gpuBuffer{label: label, desc: desc, buffer: buf}, nil
}

func (d *gpuDevice) CreateTexture(label string, desc fg.TextureDesc) (fg.Texture, error) {
	format := convFormat(desc.Format)
	if format == wgpu.TextureFormatUndefined {
		return nil, fmt.Errorf("renderer: create texture %q: unsupported format %v", label, desc.Format)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: max(desc.ArrayLayers, 1),
		},
		MipLevelCount: max(desc.MipLevels, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         convTextureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("renderer: create view %q: %w", label, err)
	}
	return &gpuTexture{label: label, desc: desc, texture: tex, view: view}, nil
}
