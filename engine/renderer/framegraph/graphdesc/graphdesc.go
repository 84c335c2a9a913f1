// Package graphdesc reads frame graphs declared in HCL and applies them to a framegraph.Builder.
//
// A description declares buffer, texture and pass blocks and names the output resource:
//
//	buffer "instances" { size = 65536 }
//	texture "albedo" { format = "rgba8_unorm" }
//	texture "shadow" {
//	  format = "depth32_float"
//	  width  = 2048
//	  height = viewport.height
//	}
//	texture "backbuffer" {
//	  format   = "bgra8_unorm"
//	  external = true
//	}
//
//	pass "gbuffer" {
//	  flags = ["raster"]
//	  read "buffer" "instances" { as = "vertex" }
//	  write "texture" "albedo" {
//	    as   = "color"
//	    load = "clear"
//	  }
//	}
//
//	output = "backbuffer"
//
// Size expressions may reference viewport.width and viewport.height.
package graphdesc

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
)

// ErrInvalid is wrapped by every error describing a malformed or unbindable description.
var ErrInvalid = errors.New("graphdesc: invalid description")

// Description is a decoded frame graph file.
type Description struct {
	Filename string
	Buffers  []BufferSpec
	Textures []TextureSpec
	Passes   []PassSpec
	Output   string
}

// BufferSpec declares a buffer resource.
type BufferSpec struct {
	Name     string
	Desc     framegraph.BufferDesc
	External bool
}

// TextureSpec declares a texture resource.
type TextureSpec struct {
	Name     string
	Desc     framegraph.TextureDesc
	External bool
}

// PassSpec declares a pass and its accesses in file order, reads before writes.
type PassSpec struct {
	Name     string
	Flags    framegraph.PassFlags
	Accesses []AccessSpec
}

// AccessSpec is one read or write block of a pass.
type AccessSpec struct {
	Write    bool
	Kind     framegraph.ResourceKind
	Resource string
	// As names the access mode, such as "storage", "sampled" or "color".
	As  string
	Ops framegraph.AttachmentOps
}

type fileRoot struct {
	Buffers  []*bufferBlock  `hcl:"buffer,block"`
	Textures []*textureBlock `hcl:"texture,block"`
	Passes   []*passBlock    `hcl:"pass,block"`
	Output   string          `hcl:"output,optional"`
}

type bufferBlock struct {
	Name     string   `hcl:"name,label"`
	Size     uint64   `hcl:"size,optional"`
	Usage    []string `hcl:"usage,optional"`
	External bool     `hcl:"external,optional"`
}

type textureBlock struct {
	Name        string   `hcl:"name,label"`
	Format      string   `hcl:"format"`
	Width       *uint32  `hcl:"width,optional"`
	Height      *uint32  `hcl:"height,optional"`
	Scale       *float64 `hcl:"scale,optional"`
	MipLevels   uint32   `hcl:"mip_levels,optional"`
	ArrayLayers uint32   `hcl:"array_layers,optional"`
	Samples     uint32   `hcl:"samples,optional"`
	Usage       []string `hcl:"usage,optional"`
	External    bool     `hcl:"external,optional"`
}

type passBlock struct {
	Name   string         `hcl:"name,label"`
	Flags  []string       `hcl:"flags"`
	Reads  []*accessBlock `hcl:"read,block"`
	Writes []*accessBlock `hcl:"write,block"`
}

type accessBlock struct {
	Kind       string    `hcl:"kind,label"`
	Resource   string    `hcl:"resource,label"`
	As         string    `hcl:"as,optional"`
	Load       string    `hcl:"load,optional"`
	Store      string    `hcl:"store,optional"`
	ClearColor []float64 `hcl:"clear_color,optional"`
	ClearDepth *float64  `hcl:"clear_depth,optional"`
}

// evalContext exposes the viewport to size expressions.
func evalContext(viewport framegraph.Extent) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"viewport": cty.ObjectVal(map[string]cty.Value{
				"width":  cty.NumberIntVal(int64(viewport.Width)),
				"height": cty.NumberIntVal(int64(viewport.Height)),
			}),
		},
	}
}

// Load reads and parses the description at path.
//
// Parameters:
//   - path: the HCL file to read
//   - viewport: the values of viewport.width and viewport.height
//
// Returns:
//   - *Description: the decoded description
//   - error: an error if the file cannot be read or is invalid
func Load(path string, viewport framegraph.Extent) (*Description, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graphdesc: read %s: %w", path, err)
	}
	return Parse(src, path, viewport)
}

// Parse decodes a description from HCL source.
//
// Parameters:
//   - src: the HCL source
//   - filename: the name used in diagnostics
//   - viewport: the values of viewport.width and viewport.height
//
// Returns:
//   - *Description: the decoded description
//   - error: an error wrapping the HCL diagnostics or ErrInvalid
func Parse(src []byte, filename string, viewport framegraph.Extent) (*Description, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("graphdesc: parse %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, evalContext(viewport), &root); diags.HasErrors() {
		return nil, fmt.Errorf("graphdesc: decode %s: %w", filename, diags)
	}

	d := &Description{Filename: filename, Output: root.Output}
	for _, blk := range root.Buffers {
		spec, err := blk.spec()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: buffer %q: %w", ErrInvalid, filename, blk.Name, err)
		}
		d.Buffers = append(d.Buffers, spec)
	}
	for _, blk := range root.Textures {
		spec, err := blk.spec()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: texture %q: %w", ErrInvalid, filename, blk.Name, err)
		}
		d.Textures = append(d.Textures, spec)
	}
	for _, blk := range root.Passes {
		spec, err := blk.spec()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: pass %q: %w", ErrInvalid, filename, blk.Name, err)
		}
		d.Passes = append(d.Passes, spec)
	}
	return d, nil
}

func (blk *bufferBlock) spec() (BufferSpec, error) {
	usage, err := parseFlags(blk.Usage, bufferUsages, "usage")
	if err != nil {
		return BufferSpec{}, err
	}
	if blk.Size == 0 && !blk.External {
		return BufferSpec{}, errors.New("size must be positive")
	}
	return BufferSpec{
		Name:     blk.Name,
		Desc:     framegraph.BufferDesc{Size: blk.Size, Usage: usage},
		External: blk.External,
	}, nil
}

func (blk *textureBlock) spec() (TextureSpec, error) {
	format, ok := formats[blk.Format]
	if !ok {
		return TextureSpec{}, fmt.Errorf("unknown format %q", blk.Format)
	}
	usage, err := parseFlags(blk.Usage, textureUsages, "usage")
	if err != nil {
		return TextureSpec{}, err
	}

	var desc framegraph.TextureDesc
	switch {
	case blk.Scale != nil:
		if blk.Width != nil || blk.Height != nil {
			return TextureSpec{}, errors.New("scale cannot be combined with width or height")
		}
		desc = framegraph.RelativeTexture(format, float32(*blk.Scale))
	case blk.Width != nil && blk.Height != nil:
		desc = framegraph.AbsoluteTexture(format, *blk.Width, *blk.Height)
	case blk.Width != nil || blk.Height != nil:
		return TextureSpec{}, errors.New("width and height must be set together")
	default:
		desc = framegraph.RelativeTexture(format, 1)
	}
	desc.MipLevels = blk.MipLevels
	desc.ArrayLayers = blk.ArrayLayers
	desc.SampleCount = blk.Samples
	desc.Usage = usage
	return TextureSpec{Name: blk.Name, Desc: desc, External: blk.External}, nil
}

func (blk *passBlock) spec() (PassSpec, error) {
	flags, err := parseFlags(blk.Flags, passFlags, "flag")
	if err != nil {
		return PassSpec{}, err
	}
	if flags == 0 {
		return PassSpec{}, errors.New("flags must name at least one pass kind")
	}
	spec := PassSpec{Name: blk.Name, Flags: flags}
	for _, a := range blk.Reads {
		as, err := a.spec(false, flags)
		if err != nil {
			return PassSpec{}, err
		}
		spec.Accesses = append(spec.Accesses, as)
	}
	for _, a := range blk.Writes {
		as, err := a.spec(true, flags)
		if err != nil {
			return PassSpec{}, err
		}
		spec.Accesses = append(spec.Accesses, as)
	}
	return spec, nil
}

func (blk *accessBlock) spec(write bool, flags framegraph.PassFlags) (AccessSpec, error) {
	verb := "read"
	if write {
		verb = "write"
	}
	spec := AccessSpec{Write: write, Resource: blk.Resource, As: blk.As, Ops: framegraph.ClearStore}

	var modes map[string]bool
	switch blk.Kind {
	case "buffer":
		spec.Kind = framegraph.ResourceKindBuffer
		modes = bufferReadModes
		if write {
			modes = bufferWriteModes
		}
		if spec.As == "" {
			spec.As = "storage"
		}
	case "texture":
		spec.Kind = framegraph.ResourceKindTexture
		modes = textureReadModes
		if write {
			modes = textureWriteModes
		}
		if spec.As == "" {
			spec.As = defaultTextureMode(write, flags)
		}
	default:
		return AccessSpec{}, fmt.Errorf("%s %q: unknown resource kind %q", verb, blk.Resource, blk.Kind)
	}
	if !modes[spec.As] {
		return AccessSpec{}, fmt.Errorf("%s %s %q: unknown access %q", verb, blk.Kind, blk.Resource, spec.As)
	}

	if blk.Load != "" {
		load, ok := loadOps[blk.Load]
		if !ok {
			return AccessSpec{}, fmt.Errorf("%s %q: unknown load op %q", verb, blk.Resource, blk.Load)
		}
		spec.Ops.Load = load
	}
	if blk.Store != "" {
		store, ok := storeOps[blk.Store]
		if !ok {
			return AccessSpec{}, fmt.Errorf("%s %q: unknown store op %q", verb, blk.Resource, blk.Store)
		}
		spec.Ops.Store = store
	}
	if len(blk.ClearColor) > 0 {
		if len(blk.ClearColor) != 4 {
			return AccessSpec{}, fmt.Errorf("%s %q: clear_color needs 4 components, got %d", verb, blk.Resource, len(blk.ClearColor))
		}
		spec.Ops.ClearColor = framegraph.Color{R: blk.ClearColor[0], G: blk.ClearColor[1], B: blk.ClearColor[2], A: blk.ClearColor[3]}
	}
	if blk.ClearDepth != nil {
		spec.Ops.ClearDepth = float32(*blk.ClearDepth)
	}
	return spec, nil
}

func defaultTextureMode(write bool, flags framegraph.PassFlags) string {
	switch {
	case !write:
		return "sampled"
	case flags&framegraph.PassRaster != 0:
		return "color"
	case flags&framegraph.PassCopy != 0:
		return "blit"
	}
	return "storage"
}

func parseFlags[F ~uint32](names []string, table map[string]F, what string) (F, error) {
	var out F
	for _, n := range names {
		f, ok := table[n]
		if !ok {
			return 0, fmt.Errorf("unknown %s %q", what, n)
		}
		out |= f
	}
	return out, nil
}
