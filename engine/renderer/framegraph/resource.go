package framegraph

import (
	"fmt"
	"slices"
)

// ResourceKind identifies the variant of a logical resource.
type ResourceKind int

const (
	// ResourceKindBuffer is a linear GPU buffer.
	ResourceKindBuffer ResourceKind = iota
	// ResourceKindTexture is a GPU texture/image.
	ResourceKindTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindTexture:
		return "texture"
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// SizeMode selects how a texture's width and height are interpreted.
type SizeMode int

const (
	// SizeAbsolute uses Width and Height as pixel dimensions.
	SizeAbsolute SizeMode = iota
	// SizeViewportRelative multiplies the pool's viewport by Scale.
	SizeViewportRelative
)

// BufferDesc describes a buffer resource.
type BufferDesc struct {
	Size  uint64
	Usage BufferUsage
}

// TextureDesc describes a texture resource. Zero ArrayLayers, MipLevels and SampleCount
// are treated as 1; a zero Scale on a viewport-relative texture is treated as 1.
type TextureDesc struct {
	SizeMode    SizeMode
	Width       uint32
	Height      uint32
	Scale       float32
	ArrayLayers uint32
	MipLevels   uint32
	SampleCount uint32
	Format      Format
	Usage       TextureUsage
}

// AbsoluteTexture returns a single-mip, single-layer texture descriptor of a fixed size.
func AbsoluteTexture(format Format, width, height uint32) TextureDesc {
	return TextureDesc{
		SizeMode: SizeAbsolute,
		Width:    width,
		Height:   height,
		Format:   format,
	}
}

// RelativeTexture returns a single-mip, single-layer texture descriptor sized as a fraction
// of the viewport.
func RelativeTexture(format Format, scale float32) TextureDesc {
	return TextureDesc{
		SizeMode: SizeViewportRelative,
		Scale:    scale,
		Format:   format,
	}
}

// Resolve returns the absolute descriptor for the given viewport, with defaulted counts.
//
// Parameters:
//   - viewport: the extent relative sizes are resolved against
//
// Returns:
//   - TextureDesc: a descriptor with SizeMode SizeAbsolute
func (d TextureDesc) Resolve(viewport Extent) TextureDesc {
	out := d
	if d.SizeMode == SizeViewportRelative {
		scale := d.Scale
		if scale <= 0 {
			scale = 1
		}
		out.Width = max(uint32(float32(viewport.Width)*scale), 1)
		out.Height = max(uint32(float32(viewport.Height)*scale), 1)
	}
	out.SizeMode = SizeAbsolute
	out.Scale = 0
	out.Width = max(out.Width, 1)
	out.Height = max(out.Height, 1)
	out.ArrayLayers = max(out.ArrayLayers, 1)
	out.MipLevels = max(out.MipLevels, 1)
	out.SampleCount = max(out.SampleCount, 1)
	return out
}

// ResourceRef is implemented by BufferHandle and TextureHandle so that either kind can be
// designated as the graph output.
type ResourceRef interface {
	resourceIndex() int
}

// BufferHandle refers to a logical buffer in a Builder's resource arena.
type BufferHandle int

// InvalidBuffer is returned when a buffer could not be declared.
const InvalidBuffer BufferHandle = InvalidIndex

// Valid reports whether the handle was assigned by a Builder.
func (h BufferHandle) Valid() bool { return h >= 0 }

func (h BufferHandle) resourceIndex() int { return int(h) }

// TextureHandle refers to a logical texture in a Builder's resource arena.
type TextureHandle int

// InvalidTexture is returned when a texture could not be declared.
const InvalidTexture TextureHandle = InvalidIndex

// Valid reports whether the handle was assigned by a Builder.
func (h TextureHandle) Valid() bool { return h >= 0 }

func (h TextureHandle) resourceIndex() int { return int(h) }

// resource is an arena entry for a logical buffer or texture. Exactly one of the buffer or
// texture field groups is meaningful, selected by kind.
type resource struct {
	name string
	kind ResourceKind
	// declared is set once the resource has been created or registered since the last Reset.
	declared bool

	buffer      BufferDesc
	baseBuffer  BufferUsage
	texture     TextureDesc
	baseTexture TextureUsage

	// writers and readers hold pass indices in first-declaration order without duplicates.
	writers []int
	readers []int

	external   bool
	extBuffer  Buffer
	extTexture Texture

	// physical is the slot in the flattened physical numbering, InvalidIndex until bound.
	physical    int
	poolBuffer  Buffer
	poolTexture Texture
}

func (r *resource) addWriter(pass int) {
	if !slices.Contains(r.writers, pass) {
		r.writers = append(r.writers, pass)
	}
}

func (r *resource) addReader(pass int) {
	if !slices.Contains(r.readers, pass) {
		r.readers = append(r.readers, pass)
	}
}

func (r *resource) removeWriter(pass int) {
	r.writers = slices.DeleteFunc(r.writers, func(w int) bool { return w == pass })
}

func (r *resource) removeReader(pass int) {
	r.readers = slices.DeleteFunc(r.readers, func(w int) bool { return w == pass })
}

func (r *resource) physicalBuffer() Buffer {
	if r.external {
		return r.extBuffer
	}
	return r.poolBuffer
}

func (r *resource) physicalTexture() Texture {
	if r.external {
		return r.extTexture
	}
	return r.poolTexture
}

// reset clears the per-run declaration state: binding, reader/writer sets and accumulated usage.
func (r *resource) reset() {
	r.writers = r.writers[:0]
	r.readers = r.readers[:0]
	r.buffer.Usage = r.baseBuffer
	r.texture.Usage = r.baseTexture
	r.poolBuffer = nil
	r.poolTexture = nil
	r.declared = false
	if !r.external {
		r.physical = InvalidIndex
	}
}

// ResourceInfo is a read-only snapshot of a logical resource.
type ResourceInfo struct {
	Name     string
	Kind     ResourceKind
	External bool
	// PhysicalIndex is the bound slot, or InvalidIndex if the resource is not bound.
	PhysicalIndex int
	Writers       []PassHandle
	Readers       []PassHandle
	BufferDesc    BufferDesc
	TextureDesc   TextureDesc
	Buffer        BufferHandle
	Texture       TextureHandle
	// PoolAllocated reports whether the physical object came from the ResourcePool.
	PoolAllocated bool
}

func (r *resource) info(index int) ResourceInfo {
	ri := ResourceInfo{
		Name:          r.name,
		Kind:          r.kind,
		External:      r.external,
		PhysicalIndex: r.physical,
		Writers:       toPassHandles(r.writers),
		Readers:       toPassHandles(r.readers),
		BufferDesc:    r.buffer,
		TextureDesc:   r.texture,
		Buffer:        InvalidBuffer,
		Texture:       InvalidTexture,
		PoolAllocated: r.poolBuffer != nil || r.poolTexture != nil,
	}
	switch r.kind {
	case ResourceKindBuffer:
		ri.Buffer = BufferHandle(index)
	case ResourceKindTexture:
		ri.Texture = TextureHandle(index)
	}
	return ri
}

func toPassHandles(in []int) []PassHandle {
	out := make([]PassHandle, len(in))
	for i, v := range in {
		out[i] = PassHandle(v)
	}
	return out
}

// bufferUsageFor maps a buffer access to the usage flags the physical buffer needs.
func bufferUsageFor(a Access) BufferUsage {
	var u BufferUsage
	if a&AccessVertexAttributeRead != 0 {
		u |= BufferUsageVertex
	}
	if a&AccessIndexRead != 0 {
		u |= BufferUsageIndex
	}
	if a&AccessIndirectCommandRead != 0 {
		u |= BufferUsageIndirect
	}
	if a&AccessUniformRead != 0 {
		u |= BufferUsageUniform
	}
	if a&(AccessShaderRead|AccessShaderWrite) != 0 {
		u |= BufferUsageStorage
	}
	if a&AccessTransferRead != 0 {
		u |= BufferUsageCopySrc
	}
	if a&AccessTransferWrite != 0 {
		u |= BufferUsageCopyDst
	}
	return u
}

// textureUsageFor maps a texture access and layout to the usage flags the physical texture needs.
func textureUsageFor(a Access, layout Layout) TextureUsage {
	var u TextureUsage
	if a&(AccessShaderRead|AccessShaderWrite) != 0 {
		if layout == LayoutGeneral || a&AccessShaderWrite != 0 {
			u |= TextureUsageStorage
		} else {
			u |= TextureUsageSampled
		}
	}
	if a&AccessInputAttachmentRead != 0 {
		u |= TextureUsageInputAttachment
	}
	if a&(AccessColorAttachmentRead|AccessColorAttachmentWrite) != 0 {
		u |= TextureUsageColorAttachment
	}
	if a&(AccessDepthStencilRead|AccessDepthStencilWrite) != 0 {
		u |= TextureUsageDepthStencilAttachment
	}
	if a&AccessTransferRead != 0 {
		u |= TextureUsageCopySrc
	}
	if a&AccessTransferWrite != 0 {
		u |= TextureUsageCopyDst
	}
	return u
}
