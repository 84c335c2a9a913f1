package framegraph

import (
	"fmt"
	"log/slog"
)

// Builder owns the logical resources and passes of a frame graph, compiles them into an
// execution list with bound physical resources and barriers, and executes the result.
//
// A Builder is not safe for concurrent use; one goroutine drives it for the whole frame.
type Builder interface {
	// CreateBuffer declares a pool-allocated buffer. If a resource named name was already
	// declared in this run a warning is logged and its handle is returned unchanged.
	//
	// Parameters:
	//   - desc: the buffer descriptor; its usage is widened by pass declarations
	//   - name: the unique resource name, also the pool cache key
	//
	// Returns:
	//   - BufferHandle: the buffer handle, or InvalidBuffer if name is a texture
	CreateBuffer(desc BufferDesc, name string) BufferHandle

	// CreateTexture declares a pool-allocated texture. If a resource named name was already
	// declared in this run a warning is logged and its handle is returned unchanged.
	//
	// Parameters:
	//   - desc: the texture descriptor, absolute or viewport-relative
	//   - name: the unique resource name, also the pool cache key
	//
	// Returns:
	//   - TextureHandle: the texture handle, or InvalidTexture if name is a buffer
	CreateTexture(desc TextureDesc, name string) TextureHandle

	// RegisterExternalBuffer wraps a caller-owned buffer. External resources take the lowest
	// physical slots in registration order and are never allocated by the pool. Registering
	// an existing external name swaps the physical buffer without invalidating the graph.
	//
	// Parameters:
	//   - name: the unique resource name
	//   - buf: the caller-owned buffer
	//
	// Returns:
	//   - BufferHandle: the buffer handle, or InvalidBuffer if name is taken by a non-external buffer or a texture
	RegisterExternalBuffer(name string, buf Buffer) BufferHandle

	// RegisterExternalTexture wraps a caller-owned texture, such as a swapchain image.
	// Registering an existing external name swaps the physical texture without invalidating the graph.
	//
	// Parameters:
	//   - name: the unique resource name
	//   - tex: the caller-owned texture
	//
	// Returns:
	//   - TextureHandle: the texture handle, or InvalidTexture if name is taken by a non-external texture or a buffer
	RegisterExternalTexture(name string, tex Texture) TextureHandle

	// GetResource returns a snapshot of the resource named name.
	//
	// Parameters:
	//   - name: the resource name
	//
	// Returns:
	//   - ResourceInfo: the snapshot
	//   - bool: false if no resource has that name
	GetResource(name string) (ResourceInfo, bool)

	// AddPass adds a pass. If a pass named name was already added in this run a warning is
	// logged and the existing pass is returned unchanged.
	//
	// Parameters:
	//   - name: the unique pass name
	//   - flags: the pass kind flags
	//   - params: a value owned by the pass, available through Pass.Params
	//   - fn: the pass body; may be nil
	//
	// Returns:
	//   - Pass: the new or existing pass
	AddPass(name string, flags PassFlags, params any, fn ExecuteFunc) Pass

	// Pass returns the pass named name if it was added in this run.
	Pass(name string) (Pass, bool)

	// SetOutput designates the resource whose writers root the execution list.
	//
	// Parameters:
	//   - ref: a BufferHandle or TextureHandle
	//
	// Returns:
	//   - error: ErrUnknownResource if ref does not refer to a declared resource
	SetOutput(ref ResourceRef) error

	// Reset returns the builder to the declared-nothing state for a new run. Pass handles and
	// resource handles stay valid and are reused when the same names are declared again.
	Reset()

	// Compile derives the execution list, binds physical resources and synthesizes barriers.
	//
	// Returns:
	//   - error: ErrNoPasses, ErrNoOutput, ErrCycle, ErrUnknownResource or a pool error
	Compile() error

	// Execute replays the last compiled graph into the command context.
	//
	// Returns:
	//   - error: ErrInvalidGraph if the last Compile failed, otherwise the joined pass body errors
	Execute() error

	// IsCacheValid reports whether nothing was declared since the last successful Compile.
	IsCacheValid() bool

	// Valid reports whether the last Compile succeeded.
	Valid() bool

	// Err returns the diagnostic of the last failed Compile, or nil.
	Err() error

	// ExecutionOrder returns the compiled execution list.
	ExecutionOrder() []PassHandle

	// Barriers returns the barriers synthesized for a pass in the compiled graph.
	Barriers(pass PassHandle) []Barrier

	// Resize sets the pool viewport and invalidates the cache so relative textures are
	// re-resolved on the next Compile.
	Resize(viewport Extent)

	// Pool returns the resource pool the builder allocates from.
	Pool() ResourcePool

	// Release frees the pool-owned objects and unbinds them from the compiled graph.
	// Declarations are kept; the graph is invalid until the next Compile.
	Release()

	// Stats returns the counters of the last Execute.
	Stats() Stats
}

type builder struct {
	logger *slog.Logger
	pool   ResourcePool
	cmd    CommandContext

	resources   []resource
	resourceIDs map[string]int
	// externals lists external resource indices by physical slot.
	externals []int

	passes  []pass
	passIDs map[string]int

	output     int
	declErr    error
	cacheValid bool

	valid    bool
	err      error
	compiled []compiledPass
	// slots maps each physical slot of the compiled graph to its resource index.
	slots []int
	stats Stats
}

var _ Builder = &builder{}

// NewBuilder creates a Builder that allocates through device, resolves relative textures
// against viewport and records commands into cmd.
//
// Parameters:
//   - device: the Device the default pool allocates with; ignored when WithPool is given
//   - cmd: the CommandContext Execute records into
//   - viewport: the initial viewport extent
//   - options: optional BuilderOption functions
//
// Returns:
//   - Builder: the new builder
func NewBuilder(device Device, cmd CommandContext, viewport Extent, options ...BuilderOption) Builder {
	b := &builder{
		cmd:         cmd,
		resourceIDs: make(map[string]int),
		passIDs:     make(map[string]int),
		output:      InvalidIndex,
	}
	for _, opt := range options {
		opt(b)
	}
	if b.logger == nil {
		b.logger = Logger()
	}
	if b.pool == nil {
		b.pool = NewResourcePool(device, viewport, WithPoolLogger(b.logger))
	}
	return b
}

func (b *builder) invalidate() {
	b.cacheValid = false
}

// declare validates a resource declaration by pass p and returns the resource entry.
func (b *builder) declare(p, index int, kind ResourceKind, what string) (*resource, bool) {
	b.invalidate()
	if index < 0 || index >= len(b.resources) || b.resources[index].kind != kind {
		err := fmt.Errorf("%w: pass %q: %s handle %d", ErrUnknownResource, b.passes[p].name, what, index)
		b.logger.Warn("framegraph: ignoring declaration", "err", err)
		if b.declErr == nil {
			b.declErr = err
		}
		return nil, false
	}
	return &b.resources[index], true
}

func (b *builder) lookup(name string, kind ResourceKind) (int, bool, bool) {
	id, ok := b.resourceIDs[name]
	if !ok {
		return InvalidIndex, false, true
	}
	return id, true, b.resources[id].kind == kind
}

func (b *builder) create(name string, kind ResourceKind) (*resource, int, bool) {
	b.invalidate()
	id, exists, sameKind := b.lookup(name, kind)
	if exists {
		r := &b.resources[id]
		if !sameKind || r.external {
			b.logger.Warn("framegraph: resource name already in use", "name", name, "kind", r.kind, "external", r.external)
			return nil, InvalidIndex, false
		}
		if r.declared {
			b.logger.Warn("framegraph: duplicate resource declaration", "name", name)
			return nil, id, false
		}
		r.declared = true
		return r, id, true
	}
	b.resources = append(b.resources, resource{name: name, kind: kind, declared: true, physical: InvalidIndex})
	id = len(b.resources) - 1
	b.resourceIDs[name] = id
	return &b.resources[id], id, true
}

func (b *builder) CreateBuffer(desc BufferDesc, name string) BufferHandle {
	r, id, fresh := b.create(name, ResourceKindBuffer)
	if fresh {
		r.buffer = desc
		r.baseBuffer = desc.Usage
	}
	return BufferHandle(id)
}

func (b *builder) CreateTexture(desc TextureDesc, name string) TextureHandle {
	r, id, fresh := b.create(name, ResourceKindTexture)
	if fresh {
		r.texture = desc
		r.baseTexture = desc.Usage
	}
	return TextureHandle(id)
}

func (b *builder) registerExternal(name string, kind ResourceKind) (*resource, int) {
	id, exists, sameKind := b.lookup(name, kind)
	if exists {
		r := &b.resources[id]
		if !sameKind || !r.external {
			b.logger.Warn("framegraph: resource name already in use", "name", name, "kind", r.kind, "external", r.external)
			return nil, InvalidIndex
		}
		r.declared = true
		return r, id
	}
	b.invalidate()
	b.resources = append(b.resources, resource{name: name, kind: kind, declared: true, external: true, physical: len(b.externals)})
	id = len(b.resources) - 1
	b.resourceIDs[name] = id
	b.externals = append(b.externals, id)
	return &b.resources[id], id
}

func (b *builder) RegisterExternalBuffer(name string, buf Buffer) BufferHandle {
	r, id := b.registerExternal(name, ResourceKindBuffer)
	if r == nil {
		return InvalidBuffer
	}
	r.extBuffer = buf
	if buf != nil {
		declared := r.buffer.Usage
		r.buffer = buf.Desc()
		r.baseBuffer = r.buffer.Usage
		r.buffer.Usage |= declared
	}
	return BufferHandle(id)
}

func (b *builder) RegisterExternalTexture(name string, tex Texture) TextureHandle {
	r, id := b.registerExternal(name, ResourceKindTexture)
	if r == nil {
		return InvalidTexture
	}
	r.extTexture = tex
	if tex != nil {
		declared := r.texture.Usage
		r.texture = tex.Desc()
		r.baseTexture = r.texture.Usage
		r.texture.Usage |= declared
	}
	return TextureHandle(id)
}

func (b *builder) GetResource(name string) (ResourceInfo, bool) {
	id, ok := b.resourceIDs[name]
	if !ok {
		return ResourceInfo{}, false
	}
	return b.resources[id].info(id), true
}

func (b *builder) AddPass(name string, flags PassFlags, params any, fn ExecuteFunc) Pass {
	b.invalidate()
	if id, ok := b.passIDs[name]; ok {
		p := &b.passes[id]
		if p.declared {
			b.logger.Warn("framegraph: duplicate pass declaration", "name", name)
			return passRef{b: b, index: id}
		}
		p.declared = true
		p.flags = flags
		p.params = params
		p.fn = fn
		return passRef{b: b, index: id}
	}
	b.passes = append(b.passes, pass{name: name, flags: flags, declared: true, params: params, fn: fn})
	id := len(b.passes) - 1
	b.passIDs[name] = id
	return passRef{b: b, index: id}
}

func (b *builder) Pass(name string) (Pass, bool) {
	id, ok := b.passIDs[name]
	if !ok || !b.passes[id].declared {
		return nil, false
	}
	return passRef{b: b, index: id}, true
}

func (b *builder) SetOutput(ref ResourceRef) error {
	b.invalidate()
	if ref == nil {
		return fmt.Errorf("%w: nil output", ErrUnknownResource)
	}
	id := ref.resourceIndex()
	if id < 0 || id >= len(b.resources) {
		b.logger.Warn("framegraph: unknown output resource", "handle", id)
		return fmt.Errorf("%w: output handle %d", ErrUnknownResource, id)
	}
	want := ResourceKindBuffer
	if _, ok := ref.(TextureHandle); ok {
		want = ResourceKindTexture
	}
	if b.resources[id].kind != want {
		b.logger.Warn("framegraph: output handle kind mismatch", "handle", id, "kind", want)
		return fmt.Errorf("%w: output handle %d is not a %s", ErrUnknownResource, id, want)
	}
	b.output = id
	return nil
}

func (b *builder) Reset() {
	for i := range b.resources {
		b.resources[i].reset()
	}
	for i := range b.passes {
		b.passes[i].reset()
	}
	b.output = InvalidIndex
	b.declErr = nil
	b.cacheValid = false
	b.valid = false
	b.err = nil
	b.compiled = nil
	b.slots = nil
}

func (b *builder) IsCacheValid() bool {
	return b.cacheValid
}

func (b *builder) Valid() bool {
	return b.valid
}

func (b *builder) Err() error {
	return b.err
}

func (b *builder) ExecutionOrder() []PassHandle {
	out := make([]PassHandle, len(b.compiled))
	for i, cp := range b.compiled {
		out[i] = PassHandle(cp.index)
	}
	return out
}

func (b *builder) Barriers(h PassHandle) []Barrier {
	for _, cp := range b.compiled {
		if cp.index == int(h) {
			return append([]Barrier(nil), cp.barriers...)
		}
	}
	return nil
}

func (b *builder) Resize(viewport Extent) {
	if b.pool.Viewport() == viewport {
		return
	}
	b.pool.Resize(viewport)
	b.invalidate()
}

func (b *builder) Pool() ResourcePool {
	return b.pool
}

func (b *builder) Release() {
	for i := range b.resources {
		b.resources[i].poolBuffer = nil
		b.resources[i].poolTexture = nil
	}
	b.pool.Release()
	b.cacheValid = false
	b.valid = false
	b.compiled = nil
	b.slots = nil
}

func (b *builder) Stats() Stats {
	return b.stats
}

// physicalBuffer returns the physical buffer currently bound to resource index id.
func (b *builder) physicalBuffer(id int) Buffer {
	if id < 0 || id >= len(b.resources) || b.resources[id].kind != ResourceKindBuffer {
		return nil
	}
	return b.resources[id].physicalBuffer()
}

// physicalTexture returns the physical texture currently bound to resource index id.
func (b *builder) physicalTexture(id int) Texture {
	if id < 0 || id >= len(b.resources) || b.resources[id].kind != ResourceKindTexture {
		return nil
	}
	return b.resources[id].physicalTexture()
}
