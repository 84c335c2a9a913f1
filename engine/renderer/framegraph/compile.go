package framegraph

import (
	"fmt"
	"slices"
)

// Barrier is a synchronization directive synthesized for one resource access of a pass.
type Barrier struct {
	Name     string
	Kind     ResourceKind
	Buffer   BufferHandle
	Texture  TextureHandle
	Physical int

	SrcStage  Stage
	DstStage  Stage
	SrcAccess Access
	DstAccess Access
	// SrcLayout is the layout recorded at compile time. Execute transitions from the
	// texture's actual layout instead.
	SrcLayout Layout
	DstLayout Layout
}

// compiledPass is one entry of the execution list.
type compiledPass struct {
	index    int
	barriers []Barrier
	colors   []Attachment
	depth    *Attachment
}

const (
	visitNone = iota
	visitOnStack
	visitDone
)

func (b *builder) Compile() error {
	b.valid = false
	b.compiled = nil
	b.slots = nil

	order, err := b.compile()
	if err != nil {
		b.err = err
		b.logger.Error("framegraph: compile failed", "err", err)
		return err
	}

	b.compiled = order
	b.valid = true
	b.err = nil
	b.cacheValid = true
	b.logger.Debug("framegraph: compiled", "passes", len(order), "slots", len(b.slots))
	return nil
}

func (b *builder) compile() ([]compiledPass, error) {
	if b.declErr != nil {
		return nil, b.declErr
	}
	declared := 0
	for i := range b.passes {
		if b.passes[i].declared {
			declared++
		}
	}
	if declared == 0 {
		return nil, ErrNoPasses
	}
	if b.output == InvalidIndex {
		return nil, ErrNoOutput
	}

	order, err := b.executionList()
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		b.logger.Warn("framegraph: output has no writers", "output", b.resources[b.output].name)
	}
	if err := b.bind(order); err != nil {
		return nil, err
	}
	return b.synthesize(order), nil
}

// executionList returns the passes the output depends on, producers first. Writers of a
// resource are visited in declaration order and each pass is emitted after its inputs.
func (b *builder) executionList() ([]int, error) {
	state := make([]uint8, len(b.passes))
	var order []int

	var visit func(p int) error
	visit = func(p int) error {
		switch state[p] {
		case visitDone:
			return nil
		case visitOnStack:
			return fmt.Errorf("%w: pass %q depends on its own output", ErrCycle, b.passes[p].name)
		}
		state[p] = visitOnStack
		ps := &b.passes[p]
		for _, in := range ps.inputResources() {
			r := &b.resources[in]
			selfWrites := slices.Contains(r.writers, p)
			for _, w := range r.writers {
				if w == p || (selfWrites && w > p) {
					continue
				}
				if err := visit(w); err != nil {
					return err
				}
			}
		}
		state[p] = visitDone
		order = append(order, p)
		return nil
	}

	for _, w := range b.resources[b.output].writers {
		if err := visit(w); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// bind assigns physical slots. External resources keep slots 0..E-1; every other resource is
// allocated from the pool by the first pass in order that touches it.
func (b *builder) bind(order []int) error {
	for i := range b.resources {
		if r := &b.resources[i]; !r.external {
			r.physical = InvalidIndex
			r.poolBuffer = nil
			r.poolTexture = nil
		}
	}
	b.slots = append(b.slots[:0], b.externals...)
	for _, p := range order {
		for _, id := range b.passes[p].touchedResources() {
			r := &b.resources[id]
			if r.external || r.physical != InvalidIndex {
				continue
			}
			switch r.kind {
			case ResourceKindBuffer:
				buf, err := b.pool.CreateBuffer(r.buffer, r.name)
				if err != nil {
					return fmt.Errorf("framegraph: bind %q: %w", r.name, err)
				}
				r.poolBuffer = buf
			case ResourceKindTexture:
				tex, err := b.pool.CreateTexture(r.texture, r.name)
				if err != nil {
					return fmt.Errorf("framegraph: bind %q: %w", r.name, err)
				}
				r.poolTexture = tex
			}
			r.physical = len(b.slots)
			b.slots = append(b.slots, id)
		}
	}
	return nil
}

type slotState struct {
	stage   Stage
	access  Access
	layout  Layout
	touched bool
}

// synthesize walks the execution list and records a barrier wherever an access is not
// covered by the slot's last recorded access or needs a different layout.
func (b *builder) synthesize(order []int) []compiledPass {
	states := make([]slotState, len(b.slots))
	for slot, id := range b.slots {
		if tex := b.physicalTexture(id); tex != nil {
			states[slot].layout = tex.Layout()
		}
	}

	out := make([]compiledPass, 0, len(order))
	for _, p := range order {
		ps := &b.passes[p]
		cp := compiledPass{index: p, colors: append([]Attachment(nil), ps.colors...)}
		if ps.depth != nil {
			d := *ps.depth
			cp.depth = &d
		}

		bufferAccess := func(h BufferHandle, a AccessInfo) {
			r := &b.resources[h]
			st := &states[r.physical]
			if !st.touched {
				*st = slotState{stage: a.Stage, access: a.Access, touched: true}
				return
			}
			if st.access.Contains(a.Access) {
				return
			}
			cp.barriers = append(cp.barriers, Barrier{
				Name: r.name, Kind: ResourceKindBuffer, Buffer: h, Texture: InvalidTexture, Physical: r.physical,
				SrcStage: st.stage, DstStage: a.Stage, SrcAccess: st.access, DstAccess: a.Access,
			})
			st.stage, st.access = a.Stage, a.Access
		}
		textureAccess := func(h TextureHandle, a AccessInfo, layout Layout) {
			r := &b.resources[h]
			st := &states[r.physical]
			if st.touched && st.layout == layout && st.access.Contains(a.Access) {
				return
			}
			cp.barriers = append(cp.barriers, Barrier{
				Name: r.name, Kind: ResourceKindTexture, Buffer: InvalidBuffer, Texture: h, Physical: r.physical,
				SrcStage: st.stage, DstStage: a.Stage, SrcAccess: st.access, DstAccess: a.Access,
				SrcLayout: st.layout, DstLayout: layout,
			})
			*st = slotState{stage: a.Stage, access: a.Access, layout: layout, touched: true}
		}

		for _, a := range ps.bufferReads {
			bufferAccess(a.Buffer, a.Access)
		}
		for _, a := range ps.bufferWrites {
			bufferAccess(a.Buffer, a.Access)
		}
		for _, a := range ps.textureReads {
			textureAccess(a.Texture, a.Access, a.Layout)
		}
		for _, a := range ps.textureWrites {
			textureAccess(a.Texture, a.Access, a.Layout)
		}
		for _, a := range ps.inputs {
			textureAccess(a.Texture, a.Access, a.Layout)
		}
		for _, a := range ps.colors {
			textureAccess(a.Texture, a.Access, a.Layout)
		}
		if ps.depth != nil {
			textureAccess(ps.depth.Texture, ps.depth.Access, ps.depth.Layout)
		}
		out = append(out, cp)
	}
	return out
}
