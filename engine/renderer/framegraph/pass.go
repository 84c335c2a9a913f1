package framegraph

import (
	"fmt"
	"slices"
)

// PassHandle is the stable index of a pass in a Builder. It is assigned when the pass is first
// added and survives Reset.
type PassHandle int

// InvalidPass is the handle of no pass.
const InvalidPass PassHandle = InvalidIndex

// PassFlags selects the kind of work a pass records.
type PassFlags uint32

const (
	// PassRaster draws into color/depth attachments inside a render scope.
	PassRaster PassFlags = 1 << iota
	// PassCompute dispatches compute work on the graphics queue.
	PassCompute
	// PassAsyncCompute dispatches compute work tagged for the compute queue.
	PassAsyncCompute
	// PassCopy records copy, blit and clear commands.
	PassCopy
)

func (f PassFlags) String() string {
	out := ""
	for _, n := range []struct {
		bit  PassFlags
		name string
	}{
		{PassRaster, "raster"},
		{PassCompute, "compute"},
		{PassAsyncCompute, "async-compute"},
		{PassCopy, "copy"},
	} {
		if f&n.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// DefaultStage returns the pipeline stages a pass of these flags accesses resources from when
// a declaration does not name a more specific stage.
func (f PassFlags) DefaultStage() Stage {
	var s Stage
	if f&PassRaster != 0 {
		s |= StageVertexShader | StageFragmentShader
	}
	if f&(PassCompute|PassAsyncCompute) != 0 {
		s |= StageComputeShader
	}
	if f&PassCopy != 0 {
		s |= StageTransfer
	}
	if s == StageNone {
		return StageAllCommands
	}
	return s
}

// Queue is the queue a pass is intended to run on.
type Queue int

const (
	QueueGraphics Queue = iota
	QueueCompute
)

func (q Queue) String() string {
	if q == QueueCompute {
		return "compute"
	}
	return "graphics"
}

// BufferAccess is one buffer declaration of a pass.
type BufferAccess struct {
	Buffer BufferHandle
	Access AccessInfo
}

// TextureAccess is one texture declaration of a pass.
type TextureAccess struct {
	Texture TextureHandle
	Access  AccessInfo
	Layout  Layout
}

// Attachment is a color or depth attachment of a raster pass.
type Attachment struct {
	Texture  TextureHandle
	Ops      AttachmentOps
	Access   AccessInfo
	Layout   Layout
	ReadOnly bool
}

// ExecuteFunc is the body of a pass. It runs between the pass's barriers and, for raster
// passes, inside its render scope.
type ExecuteFunc func(pc PassContext) error

// PassContext is handed to a pass body during Execute.
type PassContext interface {
	// Pass returns the executing pass.
	Pass() Pass

	// Command returns the command context the graph is executing into.
	Command() CommandContext

	// Buffer returns the physical buffer bound to h, or nil if h is not bound.
	Buffer(h BufferHandle) Buffer

	// Texture returns the physical texture bound to h, or nil if h is not bound.
	Texture(h TextureHandle) Texture

	// Viewport returns the extent relative textures are resolved against.
	Viewport() Extent
}

// Pass is a logical unit of GPU work. Declaration methods register the pass as a reader or
// writer of a resource, widen the resource's usage and append an access record; each returns
// the pass so declarations can be chained.
type Pass interface {
	// Name returns the unique name of the pass.
	//
	// Returns:
	//   - string: the pass name
	Name() string

	// Index returns the stable handle of the pass.
	//
	// Returns:
	//   - PassHandle: the pass index
	Index() PassHandle

	// Flags returns the pass kind flags.
	//
	// Returns:
	//   - PassFlags: the flags the pass was added with
	Flags() PassFlags

	// Queue returns the queue affinity derived from the flags. It is informational only.
	//
	// Returns:
	//   - Queue: QueueCompute for async compute passes, QueueGraphics otherwise
	Queue() Queue

	// Params returns the parameter value the pass was added with.
	//
	// Returns:
	//   - any: the pass-owned parameter value, or nil
	Params() any

	// SetExecute replaces the pass body.
	//
	// Parameters:
	//   - fn: the new body, or nil for a pass that only records its barriers and scope
	//
	// Returns:
	//   - Pass: the pass, for chaining
	SetExecute(fn ExecuteFunc) Pass

	// ReadBuffer declares a read of a buffer with an explicit access.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - access: the stages and access kinds of the read
	//
	// Returns:
	//   - Pass: the pass, for chaining
	ReadBuffer(h BufferHandle, access AccessInfo) Pass

	// WriteBuffer declares a write of a buffer with an explicit access.
	//
	// Parameters:
	//   - h: the buffer handle
	//   - access: the stages and access kinds of the write
	//
	// Returns:
	//   - Pass: the pass, for chaining
	WriteBuffer(h BufferHandle, access AccessInfo) Pass

	// ReadTexture declares a read of a texture with an explicit access and layout.
	//
	// Parameters:
	//   - h: the texture handle
	//   - access: the stages and access kinds of the read
	//   - layout: the layout the texture must be in
	//
	// Returns:
	//   - Pass: the pass, for chaining
	ReadTexture(h TextureHandle, access AccessInfo, layout Layout) Pass

	// WriteTexture declares a write of a texture with an explicit access and layout.
	//
	// Parameters:
	//   - h: the texture handle
	//   - access: the stages and access kinds of the write
	//   - layout: the layout the texture must be in
	//
	// Returns:
	//   - Pass: the pass, for chaining
	WriteTexture(h TextureHandle, access AccessInfo, layout Layout) Pass

	// ReadVertexBuffer declares a vertex input read of a buffer.
	ReadVertexBuffer(h BufferHandle) Pass
	// ReadIndexBuffer declares an index read of a buffer.
	ReadIndexBuffer(h BufferHandle) Pass
	// ReadIndirectBuffer declares a buffer read as draw or dispatch arguments.
	ReadIndirectBuffer(h BufferHandle) Pass
	// ReadUniformBuffer declares a uniform read of a buffer from the shader stages of the pass.
	ReadUniformBuffer(h BufferHandle) Pass
	// ReadStorageBuffer declares a shader storage read of a buffer from the shader stages of the pass.
	ReadStorageBuffer(h BufferHandle) Pass
	// WriteStorageBuffer declares a shader storage write of a buffer from the shader stages of the pass.
	WriteStorageBuffer(h BufferHandle) Pass
	// ReadTransferBuffer declares a buffer as the source of a copy.
	ReadTransferBuffer(h BufferHandle) Pass
	// WriteTransferBuffer declares a buffer as the destination of a copy or queue write.
	WriteTransferBuffer(h BufferHandle) Pass

	// ReadSampledTexture declares a sampled read of a texture in the shader-read-only layout.
	ReadSampledTexture(h TextureHandle) Pass
	// ReadStorageImage declares a storage image read in the general layout.
	ReadStorageImage(h TextureHandle) Pass
	// WriteStorageImage declares a storage image write in the general layout.
	WriteStorageImage(h TextureHandle) Pass
	// ReadBlitSource declares a texture as the source of a copy or blit.
	ReadBlitSource(h TextureHandle) Pass
	// WriteBlitDestination declares a texture as the destination of a copy or blit.
	WriteBlitDestination(h TextureHandle) Pass

	// AddInputAttachment declares a texture read as an input attachment. Adding the same
	// texture twice is a no-op.
	//
	// Parameters:
	//   - h: the texture handle
	//
	// Returns:
	//   - Pass: the pass, for chaining
	AddInputAttachment(h TextureHandle) Pass

	// AddColorAttachment appends a color attachment. The pass becomes a writer of the texture,
	// and also a reader when ops.Load is LoadOpLoad. Adding the same texture twice is a no-op.
	//
	// Parameters:
	//   - h: the texture handle
	//   - ops: the load/store policy and clear color
	//
	// Returns:
	//   - Pass: the pass, for chaining
	AddColorAttachment(h TextureHandle, ops AttachmentOps) Pass

	// SetDepthAttachment sets the depth/stencil attachment, replacing any previous one.
	// A read-only attachment makes the pass a reader; otherwise it is a writer, and also a
	// reader when ops.Load is LoadOpLoad.
	//
	// Parameters:
	//   - h: the texture handle
	//   - ops: the load/store policy and clear depth/stencil values
	//   - readOnly: true to bind the attachment for depth testing only
	//
	// Returns:
	//   - Pass: the pass, for chaining
	SetDepthAttachment(h TextureHandle, ops AttachmentOps, readOnly bool) Pass

	// ReadDepthAttachment binds a read-only depth attachment that keeps its previous contents.
	ReadDepthAttachment(h TextureHandle) Pass

	// WriteDepthAttachment binds a writable depth attachment.
	WriteDepthAttachment(h TextureHandle, ops AttachmentOps) Pass

	// BufferReads returns the buffer reads in declaration order.
	BufferReads() []BufferAccess
	// BufferWrites returns the buffer writes in declaration order.
	BufferWrites() []BufferAccess
	// TextureReads returns the texture reads in declaration order.
	TextureReads() []TextureAccess
	// TextureWrites returns the texture writes in declaration order.
	TextureWrites() []TextureAccess
	// InputAttachments returns the input attachments in declaration order.
	InputAttachments() []TextureAccess
	// ColorAttachments returns the color attachments in declaration order.
	ColorAttachments() []Attachment

	// DepthAttachment returns the depth/stencil attachment of the pass.
	//
	// Returns:
	//   - Attachment: the attachment
	//   - bool: false if the pass has no depth attachment
	DepthAttachment() (Attachment, bool)
}

// pass is an arena entry. Its index in the builder arena is its PassHandle.
type pass struct {
	name  string
	flags PassFlags
	// declared is set once the pass has been added since the last Reset.
	declared bool

	params any
	fn     ExecuteFunc

	bufferReads   []BufferAccess
	bufferWrites  []BufferAccess
	textureReads  []TextureAccess
	textureWrites []TextureAccess
	inputs        []TextureAccess
	colors        []Attachment
	depth         *Attachment
}

func (p *pass) reset() {
	p.declared = false
	p.params = nil
	p.fn = nil
	p.bufferReads = nil
	p.bufferWrites = nil
	p.textureReads = nil
	p.textureWrites = nil
	p.inputs = nil
	p.colors = nil
	p.depth = nil
}

// inputs returns the resource indices whose prior contents the pass consumes, in declaration order.
func (p *pass) inputResources() []int {
	var out []int
	for _, a := range p.bufferReads {
		out = append(out, int(a.Buffer))
	}
	for _, a := range p.textureReads {
		out = append(out, int(a.Texture))
	}
	for _, a := range p.inputs {
		out = append(out, int(a.Texture))
	}
	for _, a := range p.colors {
		if a.Ops.Load == LoadOpLoad {
			out = append(out, int(a.Texture))
		}
	}
	if p.depth != nil && (p.depth.ReadOnly || p.depth.Ops.Load == LoadOpLoad) {
		out = append(out, int(p.depth.Texture))
	}
	return out
}

// touchedResources returns every resource index the pass declares, in barrier synthesis order.
func (p *pass) touchedResources() []int {
	var out []int
	for _, a := range p.bufferReads {
		out = append(out, int(a.Buffer))
	}
	for _, a := range p.bufferWrites {
		out = append(out, int(a.Buffer))
	}
	for _, a := range p.textureReads {
		out = append(out, int(a.Texture))
	}
	for _, a := range p.textureWrites {
		out = append(out, int(a.Texture))
	}
	for _, a := range p.inputs {
		out = append(out, int(a.Texture))
	}
	for _, a := range p.colors {
		out = append(out, int(a.Texture))
	}
	if p.depth != nil {
		out = append(out, int(p.depth.Texture))
	}
	return out
}

// passRef is the Pass handed out by a builder. Equal refs denote the same pass.
type passRef struct {
	b     *builder
	index int
}

var _ Pass = passRef{}

func (r passRef) entry() *pass {
	return &r.b.passes[r.index]
}

func (r passRef) Name() string       { return r.entry().name }
func (r passRef) Index() PassHandle  { return PassHandle(r.index) }
func (r passRef) Flags() PassFlags   { return r.entry().flags }
func (r passRef) Params() any        { return r.entry().params }
func (r passRef) defaultStage() Stage { return r.entry().flags.DefaultStage() }

func (r passRef) Queue() Queue {
	if r.entry().flags&PassAsyncCompute != 0 {
		return QueueCompute
	}
	return QueueGraphics
}

func (r passRef) SetExecute(fn ExecuteFunc) Pass {
	r.entry().fn = fn
	return r
}

func (r passRef) ReadBuffer(h BufferHandle, access AccessInfo) Pass {
	res, ok := r.b.declare(r.index, int(h), ResourceKindBuffer, "read buffer")
	if !ok {
		return r
	}
	res.addReader(r.index)
	res.buffer.Usage |= bufferUsageFor(access.Access)
	p := r.entry()
	p.bufferReads = append(p.bufferReads, BufferAccess{Buffer: h, Access: access})
	return r
}

func (r passRef) WriteBuffer(h BufferHandle, access AccessInfo) Pass {
	res, ok := r.b.declare(r.index, int(h), ResourceKindBuffer, "write buffer")
	if !ok {
		return r
	}
	res.addWriter(r.index)
	res.buffer.Usage |= bufferUsageFor(access.Access)
	p := r.entry()
	p.bufferWrites = append(p.bufferWrites, BufferAccess{Buffer: h, Access: access})
	return r
}

func (r passRef) ReadTexture(h TextureHandle, access AccessInfo, layout Layout) Pass {
	res, ok := r.b.declare(r.index, int(h), ResourceKindTexture, "read texture")
	if !ok {
		return r
	}
	res.addReader(r.index)
	res.texture.Usage |= textureUsageFor(access.Access, layout)
	p := r.entry()
	p.textureReads = append(p.textureReads, TextureAccess{Texture: h, Access: access, Layout: layout})
	return r
}

func (r passRef) WriteTexture(h TextureHandle, access AccessInfo, layout Layout) Pass {
	res, ok := r.b.declare(r.index, int(h), ResourceKindTexture, "write texture")
	if !ok {
		return r
	}
	res.addWriter(r.index)
	res.texture.Usage |= textureUsageFor(access.Access, layout)
	p := r.entry()
	p.textureWrites = append(p.textureWrites, TextureAccess{Texture: h, Access: access, Layout: layout})
	return r
}

func (r passRef) ReadVertexBuffer(h BufferHandle) Pass {
	return r.ReadBuffer(h, AccessInfo{Stage: StageVertexInput, Access: AccessVertexAttributeRead})
}

func (r passRef) ReadIndexBuffer(h BufferHandle) Pass {
	return r.ReadBuffer(h, AccessInfo{Stage: StageVertexInput, Access: AccessIndexRead})
}

func (r passRef) ReadIndirectBuffer(h BufferHandle) Pass {
	return r.ReadBuffer(h, AccessInfo{Stage: StageDrawIndirect, Access: AccessIndirectCommandRead})
}

func (r passRef) ReadUniformBuffer(h BufferHandle) Pass {
	return r.ReadBuffer(h, AccessInfo{Stage: r.defaultStage(), Access: AccessUniformRead})
}

func (r passRef) ReadStorageBuffer(h BufferHandle) Pass {
	return r.ReadBuffer(h, AccessInfo{Stage: r.defaultStage(), Access: AccessShaderRead})
}

func (r passRef) WriteStorageBuffer(h BufferHandle) Pass {
	return r.WriteBuffer(h, AccessInfo{Stage: r.defaultStage(), Access: AccessShaderWrite})
}

func (r passRef) ReadTransferBuffer(h BufferHandle) Pass {
	return r.ReadBuffer(h, AccessInfo{Stage: StageTransfer, Access: AccessTransferRead})
}

func (r passRef) WriteTransferBuffer(h BufferHandle) Pass {
	return r.WriteBuffer(h, AccessInfo{Stage: StageTransfer, Access: AccessTransferWrite})
}

func (r passRef) ReadSampledTexture(h TextureHandle) Pass {
	return r.ReadTexture(h, AccessInfo{Stage: r.defaultStage(), Access: AccessShaderRead}, LayoutShaderReadOnly)
}

func (r passRef) ReadStorageImage(h TextureHandle) Pass {
	return r.ReadTexture(h, AccessInfo{Stage: r.defaultStage(), Access: AccessShaderRead}, LayoutGeneral)
}

func (r passRef) WriteStorageImage(h TextureHandle) Pass {
	return r.WriteTexture(h, AccessInfo{Stage: r.defaultStage(), Access: AccessShaderWrite}, LayoutGeneral)
}

func (r passRef) ReadBlitSource(h TextureHandle) Pass {
	return r.ReadTexture(h, AccessInfo{Stage: StageTransfer, Access: AccessTransferRead}, LayoutTransferSrc)
}

func (r passRef) WriteBlitDestination(h TextureHandle) Pass {
	return r.WriteTexture(h, AccessInfo{Stage: StageTransfer, Access: AccessTransferWrite}, LayoutTransferDst)
}

func (r passRef) AddInputAttachment(h TextureHandle) Pass {
	p := r.entry()
	if slices.ContainsFunc(p.inputs, func(a TextureAccess) bool { return a.Texture == h }) {
		return r
	}
	res, ok := r.b.declare(r.index, int(h), ResourceKindTexture, "input attachment")
	if !ok {
		return r
	}
	access := AccessInfo{Stage: StageFragmentShader, Access: AccessInputAttachmentRead}
	res.addReader(r.index)
	res.texture.Usage |= textureUsageFor(access.Access, LayoutShaderReadOnly)
	p.inputs = append(p.inputs, TextureAccess{Texture: h, Access: access, Layout: LayoutShaderReadOnly})
	return r
}

func (r passRef) AddColorAttachment(h TextureHandle, ops AttachmentOps) Pass {
	p := r.entry()
	if slices.ContainsFunc(p.colors, func(a Attachment) bool { return a.Texture == h }) {
		return r
	}
	res, ok := r.b.declare(r.index, int(h), ResourceKindTexture, "color attachment")
	if !ok {
		return r
	}
	access := AccessInfo{Stage: StageColorAttachmentOutput, Access: AccessColorAttachmentWrite}
	if ops.Load == LoadOpLoad {
		access.Access |= AccessColorAttachmentRead
		res.addReader(r.index)
	}
	res.addWriter(r.index)
	res.texture.Usage |= textureUsageFor(access.Access, LayoutColorAttachment)
	p.colors = append(p.colors, Attachment{Texture: h, Ops: ops, Access: access, Layout: LayoutColorAttachment})
	return r
}

func (r passRef) SetDepthAttachment(h TextureHandle, ops AttachmentOps, readOnly bool) Pass {
	res, ok := r.b.declare(r.index, int(h), ResourceKindTexture, "depth attachment")
	if !ok {
		return r
	}
	att := Attachment{
		Texture:  h,
		Ops:      ops,
		Access:   AccessInfo{Stage: StageEarlyFragmentTests | StageLateFragmentTests, Access: AccessDepthStencilRead},
		Layout:   LayoutDepthStencilReadOnly,
		ReadOnly: readOnly,
	}
	p := r.entry()
	if p.depth != nil {
		r.detachDepth(p)
	}
	if readOnly {
		res.addReader(r.index)
	} else {
		att.Access.Access |= AccessDepthStencilWrite
		att.Layout = LayoutDepthStencilAttachment
		if ops.Load == LoadOpLoad {
			res.addReader(r.index)
		}
		res.addWriter(r.index)
	}
	res.texture.Usage |= textureUsageFor(att.Access.Access, att.Layout)
	p.depth = &att
	return r
}

// detachDepth removes the pass from the reader and writer sets of its current depth texture,
// keeping the roles its other declarations of that texture still need.
func (r passRef) detachDepth(p *pass) {
	h := p.depth.Texture
	res := &r.b.resources[h]
	p.depth = nil

	reads, writes := false, false
	for _, a := range p.textureReads {
		reads = reads || a.Texture == h
	}
	for _, a := range p.inputs {
		reads = reads || a.Texture == h
	}
	for _, a := range p.textureWrites {
		writes = writes || a.Texture == h
	}
	for _, a := range p.colors {
		if a.Texture == h {
			writes = true
			reads = reads || a.Ops.Load == LoadOpLoad
		}
	}
	if !reads {
		res.removeReader(r.index)
	}
	if !writes {
		res.removeWriter(r.index)
	}
}

func (r passRef) ReadDepthAttachment(h TextureHandle) Pass {
	return r.SetDepthAttachment(h, AttachmentOps{Load: LoadOpLoad, Store: StoreOpStore}, true)
}

func (r passRef) WriteDepthAttachment(h TextureHandle, ops AttachmentOps) Pass {
	return r.SetDepthAttachment(h, ops, false)
}

func (r passRef) BufferReads() []BufferAccess   { return slices.Clone(r.entry().bufferReads) }
func (r passRef) BufferWrites() []BufferAccess  { return slices.Clone(r.entry().bufferWrites) }
func (r passRef) TextureReads() []TextureAccess { return slices.Clone(r.entry().textureReads) }
func (r passRef) TextureWrites() []TextureAccess {
	return slices.Clone(r.entry().textureWrites)
}
func (r passRef) InputAttachments() []TextureAccess { return slices.Clone(r.entry().inputs) }
func (r passRef) ColorAttachments() []Attachment    { return slices.Clone(r.entry().colors) }

func (r passRef) DepthAttachment() (Attachment, bool) {
	if d := r.entry().depth; d != nil {
		return *d, true
	}
	return Attachment{}, false
}

func (r passRef) String() string {
	return fmt.Sprintf("%s#%d", r.Name(), r.index)
}

// AddLambdaPass adds a pass whose parameters are a zero P owned by the pass. setup runs once
// to declare resource accesses; exec becomes the pass body. When a pass named name was
// already added in this run the existing pass is returned and neither callback is used.
//
// Parameters:
//   - b: the builder to add the pass to
//   - name: the unique pass name
//   - flags: the pass kind flags
//   - setup: declares the pass's resource accesses and fills in parameters; may be nil
//   - exec: the pass body
//
// Returns:
//   - Pass: the added or existing pass
func AddLambdaPass[P any](b Builder, name string, flags PassFlags, setup func(Pass, *P), exec func(PassContext, *P) error) Pass {
	params := new(P)
	var fn ExecuteFunc
	if exec != nil {
		fn = func(pc PassContext) error {
			return exec(pc, params)
		}
	}
	p := b.AddPass(name, flags, params, fn)
	if got, ok := p.Params().(*P); !ok || got != params {
		return p
	}
	if setup != nil {
		setup(p, params)
	}
	return p
}

// PassParams returns the parameters of a pass added with AddLambdaPass, or nil if the pass
// parameters are not a *P.
func PassParams[P any](p Pass) *P {
	v, _ := p.Params().(*P)
	return v
}
