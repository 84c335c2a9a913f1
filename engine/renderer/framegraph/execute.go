package framegraph

import (
	"errors"
	"fmt"
)

// Stats counts the work recorded by the last Execute.
type Stats struct {
	Passes         int
	BufferBarriers int
	ImageBarriers  int
	Flushes        int
	RenderScopes   int
	Errors         int
}

// Barriers returns the total number of barriers recorded.
func (s Stats) Barriers() int {
	return s.BufferBarriers + s.ImageBarriers
}

func (b *builder) Execute() error {
	if !b.valid {
		return ErrInvalidGraph
	}
	if !b.cacheValid {
		b.logger.Debug("framegraph: executing stale graph")
	}

	stats := Stats{}
	var errs []error
	for i := range b.compiled {
		cp := &b.compiled[i]
		b.emitBarriers(cp, &stats)

		raster := b.passes[cp.index].flags&PassRaster != 0
		if raster {
			b.cmd.BeginRenderScope(b.renderScope(cp))
			stats.RenderScopes++
		}
		if fn := b.passes[cp.index].fn; fn != nil {
			if err := fn(&passContext{b: b, index: cp.index}); err != nil {
				errs = append(errs, fmt.Errorf("framegraph: pass %q: %w", b.passes[cp.index].name, err))
			}
		}
		if raster {
			b.cmd.EndRenderScope()
		}
		stats.Passes++
	}
	stats.Errors = len(errs)
	b.stats = stats
	return errors.Join(errs...)
}

// emitBarriers records a pass's buffer barriers, then its image barriers, and flushes them as
// one batch. Image barriers transition from the texture's current layout.
func (b *builder) emitBarriers(cp *compiledPass, stats *Stats) {
	emitted := 0
	for _, br := range cp.barriers {
		if br.Kind != ResourceKindBuffer {
			continue
		}
		buf := b.physicalBuffer(int(br.Buffer))
		if buf == nil {
			continue
		}
		b.cmd.BufferBarrier(buf, 0, WholeSize, br.SrcStage, br.DstStage, br.SrcAccess, br.DstAccess)
		stats.BufferBarriers++
		emitted++
	}
	for _, br := range cp.barriers {
		if br.Kind != ResourceKindTexture {
			continue
		}
		tex := b.physicalTexture(int(br.Texture))
		if tex == nil {
			continue
		}
		b.cmd.ImageBarrier(tex, WholeTexture(tex.Desc()), tex.Layout(), br.DstLayout, br.SrcStage, br.DstStage, br.SrcAccess, br.DstAccess)
		tex.SetLayout(br.DstLayout)
		stats.ImageBarriers++
		emitted++
	}
	if emitted > 0 {
		b.cmd.FlushBarriers()
		stats.Flushes++
	}
}

// renderScope binds a raster pass's attachments to their physical textures. The area is the
// extent of the first bound attachment, or the viewport when none is bound.
func (b *builder) renderScope(cp *compiledPass) RenderScope {
	scope := RenderScope{Label: b.passes[cp.index].name}
	for _, a := range cp.colors {
		tex := b.physicalTexture(int(a.Texture))
		if tex == nil {
			continue
		}
		scope.Colors = append(scope.Colors, ColorTarget{Texture: tex, Ops: a.Ops})
	}
	if cp.depth != nil {
		if tex := b.physicalTexture(int(cp.depth.Texture)); tex != nil {
			scope.Depth = &DepthTarget{Texture: tex, Ops: cp.depth.Ops, ReadOnly: cp.depth.ReadOnly}
		}
	}

	switch {
	case len(scope.Colors) > 0:
		d := scope.Colors[0].Texture.Desc()
		scope.Area = Extent{Width: d.Width, Height: d.Height}
	case scope.Depth != nil:
		d := scope.Depth.Texture.Desc()
		scope.Area = Extent{Width: d.Width, Height: d.Height}
	default:
		scope.Area = b.pool.Viewport()
	}
	return scope
}

type passContext struct {
	b     *builder
	index int
}

var _ PassContext = &passContext{}

func (pc *passContext) Pass() Pass {
	return passRef{b: pc.b, index: pc.index}
}

func (pc *passContext) Command() CommandContext {
	return pc.b.cmd
}

func (pc *passContext) Buffer(h BufferHandle) Buffer {
	return pc.b.physicalBuffer(int(h))
}

func (pc *passContext) Texture(h TextureHandle) Texture {
	return pc.b.physicalTexture(int(h))
}

func (pc *passContext) Viewport() Extent {
	return pc.b.pool.Viewport()
}
