package renderer

import (
	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/cogentcore/webgpu/wgpu"
)

var formats = map[fg.Format]wgpu.TextureFormat{
	fg.FormatR8Unorm:             wgpu.TextureFormatR8Unorm,
	fg.FormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	fg.FormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	fg.FormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	fg.FormatBGRA8UnormSrgb:      wgpu.TextureFormatBGRA8UnormSrgb,
	fg.FormatR32Float:            wgpu.TextureFormatR32Float,
	fg.FormatRG16Float:           wgpu.TextureFormatRG16Float,
	fg.FormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
	fg.FormatRGBA32Float:         wgpu.TextureFormatRGBA32Float,
	fg.FormatR32Uint:             wgpu.TextureFormatR32Uint,
	fg.FormatDepth24Plus:         wgpu.TextureFormatDepth24Plus,
	fg.FormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	fg.FormatDepth32Float:        wgpu.TextureFormatDepth32Float,
}

// convFormat maps a graph format to the WebGPU texture format.
func convFormat(f fg.Format) wgpu.TextureFormat {
	if tf, ok := formats[f]; ok {
		return tf
	}
	return wgpu.TextureFormatUndefined
}

// formatFromWGPU maps a surface format back to a graph format, or FormatUndefined.
func formatFromWGPU(tf wgpu.TextureFormat) fg.Format {
	for f, w := range formats {
		if w == tf {
			return f
		}
	}
	return fg.FormatUndefined
}

func convBufferUsage(u fg.BufferUsage) wgpu.BufferUsage {
	var flags wgpu.BufferUsage
	if u&fg.BufferUsageVertex != 0 {
		flags |= wgpu.BufferUsageVertex
	}
	if u&fg.BufferUsageIndex != 0 {
		flags |= wgpu.BufferUsageIndex
	}
	if u&fg.BufferUsageIndirect != 0 {
		flags |= wgpu.BufferUsageIndirect
	}
	if u&fg.BufferUsageUniform != 0 {
		flags |= wgpu.BufferUsageUniform
	}
	if u&fg.BufferUsageStorage != 0 {
		flags |= wgpu.BufferUsageStorage
	}
	if u&fg.BufferUsageCopySrc != 0 {
		flags |= wgpu.BufferUsageCopySrc
	}
	if u&fg.BufferUsageCopyDst != 0 {
		flags |= wgpu.BufferUsageCopyDst
	}
	return flags
}

// convTextureUsage maps graph usage to WebGPU usage. WebGPU has no subpass inputs, so input
// attachments are bound as sampled textures.
func convTextureUsage(u fg.TextureUsage) wgpu.TextureUsage {
	var flags wgpu.TextureUsage
	if u&(fg.TextureUsageSampled|fg.TextureUsageInputAttachment) != 0 {
		flags |= wgpu.TextureUsageTextureBinding
	}
	if u&fg.TextureUsageStorage != 0 {
		flags |= wgpu.TextureUsageStorageBinding
	}
	if u&(fg.TextureUsageColorAttachment|fg.TextureUsageDepthStencilAttachment) != 0 {
		flags |= wgpu.TextureUsageRenderAttachment
	}
	if u&fg.TextureUsageCopySrc != 0 {
		flags |= wgpu.TextureUsageCopySrc
	}
	if u&fg.TextureUsageCopyDst != 0 {
		flags |= wgpu.TextureUsageCopyDst
	}
	return flags
}

// convLoadOp maps a load op. WebGPU has no don't-care load, so it clears instead.
func convLoadOp(op fg.LoadOp) wgpu.LoadOp {
	if op == fg.LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func convStoreOp(op fg.StoreOp) wgpu.StoreOp {
	if op == fg.StoreOpDiscard {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}

func convColor(c fg.Color) wgpu.Color {
	return wgpu.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func convPresentMode(mode PresentMode) wgpu.PresentMode {
	if mode == PresentModeVSync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

// colorAttachment builds the render pass attachment for t. The view is nil when t was not
// created by this package.
func colorAttachment(t fg.ColorTarget) wgpu.RenderPassColorAttachment {
	return wgpu.RenderPassColorAttachment{
		View:       TextureView(t.Texture),
		LoadOp:     convLoadOp(t.Ops.Load),
		StoreOp:    convStoreOp(t.Ops.Store),
		ClearValue: convColor(t.Ops.ClearColor),
	}
}

// depthAttachment builds the depth/stencil attachment for d. Read-only aspects and aspects
// the format lacks must leave their load and store ops undefined.
func depthAttachment(d *fg.DepthTarget) *wgpu.RenderPassDepthStencilAttachment {
	if d == nil {
		return nil
	}
	a := &wgpu.RenderPassDepthStencilAttachment{
		View:            TextureView(d.Texture),
		DepthClearValue: d.Ops.ClearDepth,
		DepthReadOnly:   d.ReadOnly,
	}
	if !d.ReadOnly {
		a.DepthLoadOp = convLoadOp(d.Ops.Load)
		a.DepthStoreOp = convStoreOp(d.Ops.Store)
	}

	var format fg.Format
	if d.Texture != nil {
		format = d.Texture.Desc().Format
	}
	if format.HasStencil() {
		a.StencilClearValue = d.Ops.ClearStencil
		a.StencilReadOnly = d.ReadOnly
		if !d.ReadOnly {
			a.StencilLoadOp = convLoadOp(d.Ops.Load)
			a.StencilStoreOp = convStoreOp(d.Ops.Store)
		}
	}
	return a
}
