// Package fgtest provides in-memory framegraph collaborators that record every call, for
// tests of code built on a framegraph.Builder.
package fgtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
)

// ErrInjected is returned by a Device whose FailNext was set.
var ErrInjected = errors.New("fgtest: injected failure")

// Buffer is a framegraph.Buffer with no backing memory.
type Buffer struct {
	ID       int
	label    string
	desc     framegraph.BufferDesc
	Released bool
}

var _ framegraph.Buffer = &Buffer{}

// NewBuffer returns a buffer suitable for external registration.
func NewBuffer(label string, desc framegraph.BufferDesc) *Buffer {
	return &Buffer{ID: -1, label: label, desc: desc}
}

func (b *Buffer) Label() string                   { return b.label }
func (b *Buffer) Desc() framegraph.BufferDesc     { return b.desc }
func (b *Buffer) Release()                        { b.Released = true }
func (b *Buffer) String() string                  { return fmt.Sprintf("buffer(%s#%d)", b.label, b.ID) }

// Texture is a framegraph.Texture that only tracks its layout.
type Texture struct {
	ID       int
	label    string
	desc     framegraph.TextureDesc
	layout   framegraph.Layout
	Released bool
}

var _ framegraph.Texture = &Texture{}

// NewTexture returns a texture suitable for external registration. desc is resolved against a
// 1x1 viewport so relative sizes collapse to their absolute fields.
func NewTexture(label string, desc framegraph.TextureDesc, layout framegraph.Layout) *Texture {
	return &Texture{ID: -1, label: label, desc: desc.Resolve(framegraph.Extent{Width: 1, Height: 1}), layout: layout}
}

func (t *Texture) Label() string                     { return t.label }
func (t *Texture) Desc() framegraph.TextureDesc      { return t.desc }
func (t *Texture) Layout() framegraph.Layout         { return t.layout }
func (t *Texture) SetLayout(layout framegraph.Layout) { t.layout = layout }
func (t *Texture) Release()                          { t.Released = true }
func (t *Texture) String() string                    { return fmt.Sprintf("texture(%s#%d)", t.label, t.ID) }

// Device creates Buffers and Textures and remembers every one it created.
type Device struct {
	mu       sync.Mutex
	Buffers  []*Buffer
	Textures []*Texture
	// FailNext makes the next creation call return ErrInjected.
	FailNext bool
}

var _ framegraph.Device = &Device{}

// NewDevice returns an empty Device.
func NewDevice() *Device {
	return &Device{}
}

func (d *Device) CreateBuffer(label string, desc framegraph.BufferDesc) (framegraph.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailNext {
		d.FailNext = false
		return nil, ErrInjected
	}
	b := &Buffer{ID: len(d.Buffers), label: label, desc: desc}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateTexture(label string, desc framegraph.TextureDesc) (framegraph.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailNext {
		d.FailNext = false
		return nil, ErrInjected
	}
	t := &Texture{ID: len(d.Textures), label: label, desc: desc}
	d.Textures = append(d.Textures, t)
	return t, nil
}

// Allocations returns the number of buffers and textures created so far.
func (d *Device) Allocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Buffers) + len(d.Textures)
}

// Op identifies a recorded command.
type Op int

const (
	OpBufferBarrier Op = iota
	OpImageBarrier
	OpFlush
	OpBeginScope
	OpEndScope
	OpMark
)

func (o Op) String() string {
	switch o {
	case OpBufferBarrier:
		return "buffer-barrier"
	case OpImageBarrier:
		return "image-barrier"
	case OpFlush:
		return "flush"
	case OpBeginScope:
		return "begin-scope"
	case OpEndScope:
		return "end-scope"
	case OpMark:
		return "mark"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Command is one recorded CommandContext call. Only the fields relevant to Op are set.
type Command struct {
	Op        Op
	Buffer    framegraph.Buffer
	Texture   framegraph.Texture
	Sub       framegraph.Subresource
	SrcLayout framegraph.Layout
	DstLayout framegraph.Layout
	SrcStage  framegraph.Stage
	DstStage  framegraph.Stage
	SrcAccess framegraph.Access
	DstAccess framegraph.Access
	Scope     framegraph.RenderScope
	// Label is the scope label for OpBeginScope and the text for OpMark.
	Label string
}

// CommandContext records every call into Commands.
type CommandContext struct {
	Commands []Command
	pending  int
	open     bool
}

var _ framegraph.CommandContext = &CommandContext{}

// NewCommandContext returns an empty CommandContext.
func NewCommandContext() *CommandContext {
	return &CommandContext{}
}

func (c *CommandContext) BufferBarrier(buf framegraph.Buffer, offset, size uint64, srcStage, dstStage framegraph.Stage, srcAccess, dstAccess framegraph.Access) {
	c.pending++
	c.Commands = append(c.Commands, Command{
		Op: OpBufferBarrier, Buffer: buf,
		SrcStage: srcStage, DstStage: dstStage, SrcAccess: srcAccess, DstAccess: dstAccess,
	})
}

func (c *CommandContext) ImageBarrier(tex framegraph.Texture, sub framegraph.Subresource, srcLayout, dstLayout framegraph.Layout, srcStage, dstStage framegraph.Stage, srcAccess, dstAccess framegraph.Access) {
	c.pending++
	c.Commands = append(c.Commands, Command{
		Op: OpImageBarrier, Texture: tex, Sub: sub, SrcLayout: srcLayout, DstLayout: dstLayout,
		SrcStage: srcStage, DstStage: dstStage, SrcAccess: srcAccess, DstAccess: dstAccess,
	})
}

func (c *CommandContext) FlushBarriers() {
	c.pending = 0
	c.Commands = append(c.Commands, Command{Op: OpFlush})
}

func (c *CommandContext) BeginRenderScope(scope framegraph.RenderScope) {
	c.open = true
	c.Commands = append(c.Commands, Command{Op: OpBeginScope, Scope: scope, Label: scope.Label})
}

func (c *CommandContext) EndRenderScope() {
	c.open = false
	c.Commands = append(c.Commands, Command{Op: OpEndScope})
}

// Mark records a labelled command, typically from a pass body to show where it ran.
func (c *CommandContext) Mark(label string) {
	c.Commands = append(c.Commands, Command{Op: OpMark, Label: label})
}

// Pending returns the number of barriers queued since the last flush.
func (c *CommandContext) Pending() int {
	return c.pending
}

// InScope reports whether a render scope is open.
func (c *CommandContext) InScope() bool {
	return c.open
}

// Ops returns the recorded operations in order.
func (c *CommandContext) Ops() []Op {
	out := make([]Op, len(c.Commands))
	for i, cmd := range c.Commands {
		out[i] = cmd.Op
	}
	return out
}

// Marks returns the labels of recorded OpMark commands in order.
func (c *CommandContext) Marks() []string {
	var out []string
	for _, cmd := range c.Commands {
		if cmd.Op == OpMark {
			out = append(out, cmd.Label)
		}
	}
	return out
}

// Count returns the number of recorded commands with the given op.
func (c *CommandContext) Count(op Op) int {
	n := 0
	for _, cmd := range c.Commands {
		if cmd.Op == op {
			n++
		}
	}
	return n
}

// Clear drops every recorded command.
func (c *CommandContext) Clear() {
	c.Commands = nil
	c.pending = 0
	c.open = false
}

// MarkFunc returns a pass body that records the pass name as an OpMark on the context the
// graph executes into, which must be a *CommandContext.
func MarkFunc() framegraph.ExecuteFunc {
	return func(pc framegraph.PassContext) error {
		if c, ok := pc.Command().(*CommandContext); ok {
			c.Mark(pc.Pass().Name())
		}
		return nil
	}
}
