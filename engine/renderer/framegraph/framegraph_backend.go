package framegraph

// Buffer is a physical GPU buffer, either allocated by a ResourcePool or owned by the caller
// and registered as an external resource.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Desc returns the descriptor the buffer was created from.
	//
	// Returns:
	//   - BufferDesc: the creation descriptor
	Desc() BufferDesc

	// Release frees the GPU allocation. The buffer must not be used afterwards.
	Release()
}

// Texture is a physical GPU texture, either allocated by a ResourcePool or owned by the caller
// and registered as an external resource.
//
// The barrier emitter reads Layout as the source layout of every image transition and stores
// the destination layout back through SetLayout, so the value always reflects the last
// transition recorded against the texture.
type Texture interface {
	// Label returns the debug label the texture was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Desc returns the resolved (absolute-sized) descriptor the texture was created from.
	//
	// Returns:
	//   - TextureDesc: the creation descriptor with SizeMode SizeAbsolute
	Desc() TextureDesc

	// Layout returns the layout recorded by the last image barrier.
	//
	// Returns:
	//   - Layout: the current layout
	Layout() Layout

	// SetLayout records the layout the texture was transitioned to.
	//
	// Parameters:
	//   - layout: the new current layout
	SetLayout(layout Layout)

	// Release frees the GPU allocation. The texture must not be used afterwards.
	Release()
}

// Device creates physical resources for a ResourcePool.
type Device interface {
	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - label: the debug label, usually the logical resource name
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if the allocation failed
	CreateBuffer(label string, desc BufferDesc) (Buffer, error)

	// CreateTexture allocates a GPU texture and its default view.
	//
	// Parameters:
	//   - label: the debug label, usually the logical resource name
	//   - desc: the texture descriptor, already resolved against the viewport
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the allocation failed
	CreateTexture(label string, desc TextureDesc) (Texture, error)
}

// Subresource selects the mip levels and array layers an image barrier applies to.
type Subresource struct {
	BaseMip    uint32
	MipCount   uint32
	BaseLayer  uint32
	LayerCount uint32
}

// WholeTexture returns the subresource range covering every mip level and layer of desc.
func WholeTexture(desc TextureDesc) Subresource {
	return Subresource{
		MipCount:   max(desc.MipLevels, 1),
		LayerCount: max(desc.ArrayLayers, 1),
	}
}

// ColorTarget is a color attachment bound to a physical texture for a render scope.
type ColorTarget struct {
	Texture Texture
	Ops     AttachmentOps
}

// DepthTarget is a depth/stencil attachment bound to a physical texture for a render scope.
type DepthTarget struct {
	Texture  Texture
	Ops      AttachmentOps
	ReadOnly bool
}

// RenderScope describes the attachments and area of a raster pass's rendering scope.
type RenderScope struct {
	Label  string
	Area   Extent
	Colors []ColorTarget
	Depth  *DepthTarget
}

// CommandContext records synchronization and rendering-scope commands into the active
// command stream of a frame.
type CommandContext interface {
	// BufferBarrier queues a buffer memory barrier until the next FlushBarriers.
	//
	// Parameters:
	//   - buf: the physical buffer
	//   - offset: the first byte covered by the barrier
	//   - size: the number of bytes covered, or WholeSize
	//   - srcStage, dstStage: the stages before and after the barrier
	//   - srcAccess, dstAccess: the memory accesses before and after the barrier
	BufferBarrier(buf Buffer, offset, size uint64, srcStage, dstStage Stage, srcAccess, dstAccess Access)

	// ImageBarrier queues an image memory barrier with a layout transition until the next FlushBarriers.
	//
	// Parameters:
	//   - tex: the physical texture
	//   - sub: the mip levels and layers covered by the barrier
	//   - srcLayout, dstLayout: the layouts before and after the barrier
	//   - srcStage, dstStage: the stages before and after the barrier
	//   - srcAccess, dstAccess: the memory accesses before and after the barrier
	ImageBarrier(tex Texture, sub Subresource, srcLayout, dstLayout Layout, srcStage, dstStage Stage, srcAccess, dstAccess Access)

	// FlushBarriers records every queued barrier as a single batched synchronization command.
	FlushBarriers()

	// BeginRenderScope opens a rendering scope over the given attachments.
	//
	// Parameters:
	//   - scope: the bound attachments and render area
	BeginRenderScope(scope RenderScope)

	// EndRenderScope closes the rendering scope opened by BeginRenderScope.
	EndRenderScope()
}
