package framegraph

import "fmt"

// InvalidIndex marks a handle, pass index or physical slot that has not been assigned.
const InvalidIndex = -1

// WholeSize requests a barrier or binding that spans the entire buffer.
const WholeSize = ^uint64(0)

// Extent is a two-dimensional size in pixels. It is used for the viewport that
// relative-sized textures are resolved against and for render scope areas.
type Extent struct {
	Width  uint32
	Height uint32
}

// String returns the extent formatted as WIDTHxHEIGHT.
func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Stage is a bitmask of pipeline stages that an access happens in.
type Stage uint32

const (
	// StageNone means no stage; used as the source of a resource's first access.
	StageNone Stage = 0

	// StageDrawIndirect is the stage that consumes indirect draw/dispatch arguments.
	StageDrawIndirect Stage = 1 << iota
	// StageVertexInput is the stage that fetches vertex and index buffers.
	StageVertexInput
	// StageVertexShader is the vertex shading stage.
	StageVertexShader
	// StageFragmentShader is the fragment shading stage.
	StageFragmentShader
	// StageEarlyFragmentTests is the depth/stencil test stage before fragment shading.
	StageEarlyFragmentTests
	// StageLateFragmentTests is the depth/stencil test stage after fragment shading.
	StageLateFragmentTests
	// StageColorAttachmentOutput is the stage that writes color attachments.
	StageColorAttachmentOutput
	// StageComputeShader is the compute shading stage.
	StageComputeShader
	// StageTransfer covers copy, blit and clear commands.
	StageTransfer
	// StageAllCommands covers every stage.
	StageAllCommands
)

// Contains reports whether every stage bit of o is also set in s.
func (s Stage) Contains(o Stage) bool {
	return s&o == o
}

var stageNames = []struct {
	bit  Stage
	name string
}{
	{StageDrawIndirect, "draw-indirect"},
	{StageVertexInput, "vertex-input"},
	{StageVertexShader, "vertex"},
	{StageFragmentShader, "fragment"},
	{StageEarlyFragmentTests, "early-fragment-tests"},
	{StageLateFragmentTests, "late-fragment-tests"},
	{StageColorAttachmentOutput, "color-output"},
	{StageComputeShader, "compute"},
	{StageTransfer, "transfer"},
	{StageAllCommands, "all"},
}

func (s Stage) String() string {
	if s == StageNone {
		return "none"
	}
	out := ""
	for _, n := range stageNames {
		if s&n.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}

// Access is a bitmask of memory access kinds.
type Access uint32

const (
	// AccessNone means no memory access; the initial state of every physical slot.
	AccessNone Access = 0

	// AccessIndirectCommandRead reads indirect command arguments.
	AccessIndirectCommandRead Access = 1 << iota
	// AccessIndexRead reads an index buffer.
	AccessIndexRead
	// AccessVertexAttributeRead reads a vertex buffer.
	AccessVertexAttributeRead
	// AccessUniformRead reads a uniform buffer.
	AccessUniformRead
	// AccessInputAttachmentRead reads an input attachment.
	AccessInputAttachmentRead
	// AccessShaderRead reads a storage buffer, sampled texture or storage image.
	AccessShaderRead
	// AccessShaderWrite writes a storage buffer or storage image.
	AccessShaderWrite
	// AccessColorAttachmentRead reads a color attachment (load or blending).
	AccessColorAttachmentRead
	// AccessColorAttachmentWrite writes a color attachment.
	AccessColorAttachmentWrite
	// AccessDepthStencilRead reads a depth/stencil attachment.
	AccessDepthStencilRead
	// AccessDepthStencilWrite writes a depth/stencil attachment.
	AccessDepthStencilWrite
	// AccessTransferRead is the source of a copy or blit.
	AccessTransferRead
	// AccessTransferWrite is the destination of a copy, blit or clear.
	AccessTransferWrite
)

const writeAccessMask = AccessShaderWrite | AccessColorAttachmentWrite | AccessDepthStencilWrite | AccessTransferWrite

// Contains reports whether every access bit of o is also set in a.
func (a Access) Contains(o Access) bool {
	return a&o == o
}

// IsWrite reports whether any bit of a is a write access.
func (a Access) IsWrite() bool {
	return a&writeAccessMask != 0
}

var accessNames = []struct {
	bit  Access
	name string
}{
	{AccessIndirectCommandRead, "indirect-read"},
	{AccessIndexRead, "index-read"},
	{AccessVertexAttributeRead, "vertex-read"},
	{AccessUniformRead, "uniform-read"},
	{AccessInputAttachmentRead, "input-attachment-read"},
	{AccessShaderRead, "shader-read"},
	{AccessShaderWrite, "shader-write"},
	{AccessColorAttachmentRead, "color-read"},
	{AccessColorAttachmentWrite, "color-write"},
	{AccessDepthStencilRead, "depth-read"},
	{AccessDepthStencilWrite, "depth-write"},
	{AccessTransferRead, "transfer-read"},
	{AccessTransferWrite, "transfer-write"},
}

func (a Access) String() string {
	if a == AccessNone {
		return "none"
	}
	out := ""
	for _, n := range accessNames {
		if a&n.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}

// AccessInfo pairs the pipeline stages of an access with its memory access kinds.
type AccessInfo struct {
	Stage  Stage
	Access Access
}

// String returns the access formatted as stage/access.
func (a AccessInfo) String() string {
	return a.Stage.String() + "/" + a.Access.String()
}

// Layout is the layout an image must be in for an access.
type Layout int

const (
	// LayoutUndefined means the contents are undefined; the layout of a freshly allocated texture.
	LayoutUndefined Layout = iota
	// LayoutGeneral supports every access; used for storage images.
	LayoutGeneral
	// LayoutColorAttachment is optimal for color attachment output.
	LayoutColorAttachment
	// LayoutDepthStencilAttachment is optimal for depth/stencil writes.
	LayoutDepthStencilAttachment
	// LayoutDepthStencilReadOnly is optimal for read-only depth/stencil testing and sampling.
	LayoutDepthStencilReadOnly
	// LayoutShaderReadOnly is optimal for sampling and input attachments.
	LayoutShaderReadOnly
	// LayoutTransferSrc is optimal as a copy or blit source.
	LayoutTransferSrc
	// LayoutTransferDst is optimal as a copy or blit destination.
	LayoutTransferDst
	// LayoutPresent is required for presentation.
	LayoutPresent
)

func (l Layout) String() string {
	switch l {
	case LayoutUndefined:
		return "undefined"
	case LayoutGeneral:
		return "general"
	case LayoutColorAttachment:
		return "color-attachment"
	case LayoutDepthStencilAttachment:
		return "depth-stencil-attachment"
	case LayoutDepthStencilReadOnly:
		return "depth-stencil-read-only"
	case LayoutShaderReadOnly:
		return "shader-read-only"
	case LayoutTransferSrc:
		return "transfer-src"
	case LayoutTransferDst:
		return "transfer-dst"
	case LayoutPresent:
		return "present"
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// Format is a texel format for textures.
type Format int

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatRGBA8Unorm
	FormatRGBA8UnormSrgb
	FormatBGRA8Unorm
	FormatBGRA8UnormSrgb
	FormatR32Float
	FormatRG16Float
	FormatRGBA16Float
	FormatRGBA32Float
	FormatR32Uint
	FormatDepth24Plus
	FormatDepth24PlusStencil8
	FormatDepth32Float
)

// IsDepth reports whether the format has a depth aspect.
func (f Format) IsDepth() bool {
	switch f {
	case FormatDepth24Plus, FormatDepth24PlusStencil8, FormatDepth32Float:
		return true
	}
	return false
}

// HasStencil reports whether the format has a stencil aspect.
func (f Format) HasStencil() bool {
	return f == FormatDepth24PlusStencil8
}

// BufferUsage is a bitmask of the ways a buffer may be used.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageIndirect
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageNone BufferUsage = 0
)

// TextureUsage is a bitmask of the ways a texture may be used.
type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageColorAttachment
	TextureUsageDepthStencilAttachment
	TextureUsageInputAttachment
	TextureUsageCopySrc
	TextureUsageCopyDst
	TextureUsageNone TextureUsage = 0
)

// LoadOp controls how an attachment's previous contents are treated when a render scope opens.
type LoadOp int

const (
	// LoadOpDontCare leaves the previous contents undefined.
	LoadOpDontCare LoadOp = iota
	// LoadOpClear clears the attachment to its clear value.
	LoadOpClear
	// LoadOpLoad preserves the previous contents; the pass reads the attachment.
	LoadOpLoad
)

// StoreOp controls whether an attachment's contents are kept when a render scope closes.
type StoreOp int

const (
	// StoreOpStore keeps the rendered contents.
	StoreOpStore StoreOp = iota
	// StoreOpDiscard discards the rendered contents.
	StoreOpDiscard
)

// Color is a clear color in linear RGBA.
type Color struct {
	R, G, B, A float64
}

// AttachmentOps holds the load/store policy and clear values for an attachment.
type AttachmentOps struct {
	Load         LoadOp
	Store        StoreOp
	ClearColor   Color
	ClearDepth   float32
	ClearStencil uint32
}

// ClearStore is the common policy for an attachment that is fully overwritten by its pass.
var ClearStore = AttachmentOps{Load: LoadOpClear, Store: StoreOpStore, ClearDepth: 1}

// LoadStore is the policy for an attachment that accumulates onto previous contents.
var LoadStore = AttachmentOps{Load: LoadOpLoad, Store: StoreOpStore, ClearDepth: 1}
