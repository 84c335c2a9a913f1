package framegraph

import (
	"fmt"
	"log/slog"
)

// PoolStats counts the physical objects a ResourcePool holds and how creation requests were served.
type PoolStats struct {
	LiveBuffers   int
	LiveTextures  int
	Allocations   int
	Reuses        int
	Reallocations int
}

// ResourcePool is a name-keyed cache of pool-owned physical buffers and textures.
//
// A request for a name that is already cached returns the cached object when its descriptor
// matches the requested one and replaces it otherwise. Relative texture sizes are resolved
// against the pool's viewport at request time.
type ResourcePool interface {
	// CreateBuffer returns the physical buffer cached under name, creating or replacing it
	// when no buffer with an identical descriptor is cached.
	//
	// Parameters:
	//   - desc: the requested buffer descriptor
	//   - name: the cache key, usually the logical resource name
	//
	// Returns:
	//   - Buffer: the cached or newly created buffer
	//   - error: an error if the device failed to create the buffer
	CreateBuffer(desc BufferDesc, name string) (Buffer, error)

	// CreateTexture returns the physical texture cached under name, creating or replacing it
	// when no texture with an identical resolved descriptor is cached.
	//
	// Parameters:
	//   - desc: the requested texture descriptor, absolute or viewport-relative
	//   - name: the cache key, usually the logical resource name
	//
	// Returns:
	//   - Texture: the cached or newly created texture
	//   - error: an error if the device failed to create the texture
	CreateTexture(desc TextureDesc, name string) (Texture, error)

	// Resize sets the viewport used to resolve relative textures on subsequent CreateTexture
	// calls. Existing textures are not touched.
	//
	// Parameters:
	//   - viewport: the new viewport extent
	Resize(viewport Extent)

	// Viewport returns the extent relative textures are currently resolved against.
	//
	// Returns:
	//   - Extent: the current viewport
	Viewport() Extent

	// Buffer returns the buffer cached under name.
	//
	// Parameters:
	//   - name: the cache key
	//
	// Returns:
	//   - Buffer: the cached buffer, or nil
	//   - bool: true if a buffer is cached under name
	Buffer(name string) (Buffer, bool)

	// Texture returns the texture cached under name.
	//
	// Parameters:
	//   - name: the cache key
	//
	// Returns:
	//   - Texture: the cached texture, or nil
	//   - bool: true if a texture is cached under name
	Texture(name string) (Texture, bool)

	// Stats returns the pool's counters.
	//
	// Returns:
	//   - PoolStats: live object counts and request counters
	Stats() PoolStats

	// Release frees every pool-owned object and empties the cache. A Builder compiled against
	// the pool still holds the freed objects; use Builder.Release instead.
	Release()
}

type resourcePool struct {
	device   Device
	viewport Extent
	logger   *slog.Logger

	buffers  map[string]Buffer
	textures map[string]Texture

	allocations   int
	reuses        int
	reallocations int
}

var _ ResourcePool = &resourcePool{}

// NewResourcePool creates a ResourcePool that allocates through device and resolves relative
// textures against viewport.
//
// Parameters:
//   - device: the Device physical objects are created with
//   - viewport: the initial viewport extent
//   - options: optional ResourcePoolBuilderOption functions
//
// Returns:
//   - ResourcePool: the new pool
func NewResourcePool(device Device, viewport Extent, options ...ResourcePoolBuilderOption) ResourcePool {
	p := &resourcePool{
		device:   device,
		viewport: viewport,
		buffers:  make(map[string]Buffer),
		textures: make(map[string]Texture),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		p.logger = Logger()
	}
	return p
}

func (p *resourcePool) CreateBuffer(desc BufferDesc, name string) (Buffer, error) {
	cached, ok := p.buffers[name]
	if ok && cached.Desc() == desc {
		p.reuses++
		p.logger.Debug("framegraph: reusing pooled buffer", "name", name)
		return cached, nil
	}

	buf, err := p.device.CreateBuffer(name, desc)
	if err != nil {
		return nil, fmt.Errorf("framegraph: create buffer %q: %w", name, err)
	}
	if ok {
		p.logger.Debug("framegraph: reallocating pooled buffer", "name", name, "old", cached.Desc().Size, "new", desc.Size)
		cached.Release()
		p.reallocations++
	} else {
		p.logger.Debug("framegraph: allocating pooled buffer", "name", name, "size", desc.Size)
	}
	p.allocations++
	p.buffers[name] = buf
	return buf, nil
}

func (p *resourcePool) CreateTexture(desc TextureDesc, name string) (Texture, error) {
	resolved := desc.Resolve(p.viewport)
	cached, ok := p.textures[name]
	if ok && cached.Desc() == resolved {
		p.reuses++
		p.logger.Debug("framegraph: reusing pooled texture", "name", name)
		return cached, nil
	}

	tex, err := p.device.CreateTexture(name, resolved)
	if err != nil {
		return nil, fmt.Errorf("framegraph: create texture %q: %w", name, err)
	}
	extent := Extent{Width: resolved.Width, Height: resolved.Height}
	if ok {
		p.logger.Debug("framegraph: reallocating pooled texture", "name", name, "extent", extent.String())
		cached.Release()
		p.reallocations++
	} else {
		p.logger.Debug("framegraph: allocating pooled texture", "name", name, "extent", extent.String())
	}
	p.allocations++
	p.textures[name] = tex
	return tex, nil
}

func (p *resourcePool) Resize(viewport Extent) {
	p.viewport = viewport
}

func (p *resourcePool) Viewport() Extent {
	return p.viewport
}

func (p *resourcePool) Buffer(name string) (Buffer, bool) {
	b, ok := p.buffers[name]
	return b, ok
}

func (p *resourcePool) Texture(name string) (Texture, bool) {
	t, ok := p.textures[name]
	return t, ok
}

func (p *resourcePool) Stats() PoolStats {
	return PoolStats{
		LiveBuffers:   len(p.buffers),
		LiveTextures:  len(p.textures),
		Allocations:   p.allocations,
		Reuses:        p.reuses,
		Reallocations: p.reallocations,
	}
}

func (p *resourcePool) Release() {
	for name, b := range p.buffers {
		b.Release()
		delete(p.buffers, name)
	}
	for name, t := range p.textures {
		t.Release()
		delete(p.textures, name)
	}
}
