package graphdesc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/fgtest"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/graphdesc"
)

var viewport = fg.Extent{Width: 1280, Height: 720}

func TestLoadDeferred(t *testing.T) {
	d, err := graphdesc.Load("testdata/deferred.hcl", viewport)
	require.NoError(t, err)

	assert.Equal(t, "backbuffer", d.Output)
	require.Len(t, d.Buffers, 2)
	assert.Equal(t, graphdesc.BufferSpec{
		Name: "instances",
		Desc: fg.BufferDesc{Size: 65536, Usage: fg.BufferUsageCopyDst},
	}, d.Buffers[0])

	require.Len(t, d.Textures, 4)
	albedo := d.Textures[0]
	assert.Equal(t, fg.SizeViewportRelative, albedo.Desc.SizeMode)
	assert.InDelta(t, 1.0, albedo.Desc.Scale, 1e-6)
	depth := d.Textures[1]
	assert.Equal(t, fg.SizeViewportRelative, depth.Desc.SizeMode, "no size means full viewport")
	shadow := d.Textures[2]
	assert.Equal(t, fg.SizeAbsolute, shadow.Desc.SizeMode)
	assert.Equal(t, uint32(2048), shadow.Desc.Width)
	assert.Equal(t, uint32(1440), shadow.Desc.Height, "size expressions see the viewport")
	assert.True(t, d.Textures[3].External)

	require.Len(t, d.Passes, 4)
	cull := d.Passes[0]
	assert.Equal(t, fg.PassCompute, cull.Flags)
	require.Len(t, cull.Accesses, 2)
	assert.Equal(t, "storage", cull.Accesses[0].As)
	assert.False(t, cull.Accesses[0].Write)
	assert.True(t, cull.Accesses[1].Write)

	gbuffer := d.Passes[2]
	require.Len(t, gbuffer.Accesses, 4)
	color := gbuffer.Accesses[2]
	assert.Equal(t, "color", color.As, "raster texture writes default to color")
	assert.Equal(t, fg.LoadOpClear, color.Ops.Load)
	assert.Equal(t, fg.Color{A: 1}, color.Ops.ClearColor)
}

func TestApplyAndCompile(t *testing.T) {
	d, err := graphdesc.Load("testdata/deferred.hcl", viewport)
	require.NoError(t, err)

	dev := fgtest.NewDevice()
	cmd := fgtest.NewCommandContext()
	b := fg.NewBuilder(dev, cmd, viewport)
	back := fgtest.NewTexture("backbuffer", fg.AbsoluteTexture(fg.FormatBGRA8Unorm, 1280, 720), fg.LayoutUndefined)

	err = d.Apply(b, graphdesc.Bindings{
		Textures: map[string]fg.Texture{"backbuffer": back},
		Passes: map[string]fg.ExecuteFunc{
			"cull":      fgtest.MarkFunc(),
			"shadow":    fgtest.MarkFunc(),
			"gbuffer":   fgtest.MarkFunc(),
			"composite": fgtest.MarkFunc(),
		},
		Params: map[string]any{"cull": 42},
	})
	require.NoError(t, err)
	require.NoError(t, b.Compile())
	require.NoError(t, b.Execute())

	assert.Equal(t, []string{"cull", "gbuffer", "shadow", "composite"}, cmd.Marks())

	cull, ok := b.Pass("cull")
	require.True(t, ok)
	assert.Equal(t, 42, cull.Params())

	info, ok := b.GetResource("draw_args")
	require.True(t, ok)
	assert.Equal(t, fg.BufferUsageStorage|fg.BufferUsageIndirect, info.BufferDesc.Usage)

	gbuffer, _ := b.Pass("gbuffer")
	depth, ok := gbuffer.DepthAttachment()
	require.True(t, ok)
	assert.False(t, depth.ReadOnly)
	assert.Equal(t, fg.LayoutColorAttachment, back.Layout())
}

func TestApplyWithoutBodies(t *testing.T) {
	src := []byte(`
texture "out" { format = "rgba8_unorm" }
pass "clear" {
  flags = ["raster"]
  write "texture" "out" {}
}
output = "out"
`)
	d, err := graphdesc.Parse(src, "inline.hcl", viewport)
	require.NoError(t, err)

	b := fg.NewBuilder(fgtest.NewDevice(), fgtest.NewCommandContext(), viewport)
	require.NoError(t, d.Apply(b, graphdesc.Bindings{}))
	require.NoError(t, b.Compile())
	assert.NoError(t, b.Execute())
	assert.Len(t, b.ExecutionOrder(), 1)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		invalid bool
		msg     string
	}{
		{
			name: "syntax",
			src:  `buffer "a" {`,
			msg:  "graphdesc: parse bad.hcl",
		},
		{
			name: "missing format",
			src:  `texture "t" {}`,
			msg:  "graphdesc: decode bad.hcl",
		},
		{
			name:    "unknown format",
			src:     `texture "t" { format = "rgb565" }`,
			invalid: true,
			msg:     `texture "t": unknown format "rgb565"`,
		},
		{
			name:    "unknown flag",
			src:     `pass "p" { flags = ["mesh"] }`,
			invalid: true,
			msg:     `unknown flag "mesh"`,
		},
		{
			name:    "empty flags",
			src:     `pass "p" { flags = [] }`,
			invalid: true,
			msg:     "at least one pass kind",
		},
		{
			name:    "unknown access",
			src:     `
pass "p" {
  flags = ["compute"]
  write "buffer" "b" { as = "vertex" }
}`,
			invalid: true,
			msg:     `unknown access "vertex"`,
		},
		{
			name:    "unknown kind",
			src:     `
pass "p" {
  flags = ["compute"]
  read "image" "b" {}
}`,
			invalid: true,
			msg:     `unknown resource kind "image"`,
		},
		{
			name:    "unknown load op",
			src:     `
pass "p" {
  flags = ["raster"]
  write "texture" "t" { load = "keep" }
}`,
			invalid: true,
			msg:     `unknown load op "keep"`,
		},
		{
			name:    "partial size",
			src: `
texture "t" {
  format = "r8_unorm"
  width  = 4
}`,
			invalid: true,
			msg:     "width and height must be set together",
		},
		{
			name:    "zero buffer",
			src:     `buffer "b" {}`,
			invalid: true,
			msg:     "size must be positive",
		},
		{
			name:    "bad clear color",
			src:     `
pass "p" {
  flags = ["raster"]
  write "texture" "t" { clear_color = [1, 0] }
}`,
			invalid: true,
			msg:     "clear_color needs 4 components",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := graphdesc.Parse([]byte(tt.src), "bad.hcl", viewport)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.msg)
			if tt.invalid {
				assert.ErrorIs(t, err, graphdesc.ErrInvalid)
			}
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{
			name: "unbound external",
			src:  `
texture "back" {
  format   = "bgra8_unorm"
  external = true
}`,
			msg:  `external texture "back" is not bound`,
		},
		{
			name: "unknown resource",
			src:  `
pass "p" {
  flags = ["compute"]
  write "buffer" "nope" {}
}`,
			msg:  `unknown buffer "nope"`,
		},
		{
			name: "unknown output",
			src:  `output = "nope"`,
			msg:  `output "nope" is not declared`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := graphdesc.Parse([]byte(tt.src), "bad.hcl", viewport)
			require.NoError(t, err)
			b := fg.NewBuilder(fgtest.NewDevice(), fgtest.NewCommandContext(), viewport)
			err = d.Apply(b, graphdesc.Bindings{})
			require.ErrorIs(t, err, graphdesc.ErrInvalid)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := graphdesc.Load("testdata/missing.hcl", viewport)
	assert.ErrorContains(t, err, "graphdesc: read testdata/missing.hcl")
}
