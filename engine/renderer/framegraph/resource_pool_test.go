package framegraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/fgtest"
)

func TestPoolReusesUnchangedTexture(t *testing.T) {
	dev := fgtest.NewDevice()
	pool := fg.NewResourcePool(dev, viewport)

	desc := fg.AbsoluteTexture(fg.FormatRGBA8Unorm, 256, 256)
	desc.Usage = fg.TextureUsageSampled
	t1, err := pool.CreateTexture(desc, "albedo")
	require.NoError(t, err)
	t2, err := pool.CreateTexture(desc, "albedo")
	require.NoError(t, err)

	assert.Same(t, t1, t2)
	assert.Equal(t, 1, dev.Allocations())
	assert.Equal(t, fg.PoolStats{LiveTextures: 1, Allocations: 1, Reuses: 1}, pool.Stats())
}

func TestPoolReallocatesOnMismatch(t *testing.T) {
	base := fg.AbsoluteTexture(fg.FormatRGBA8Unorm, 64, 64)
	tests := []struct {
		name   string
		mutate func(*fg.TextureDesc)
	}{
		{"format", func(d *fg.TextureDesc) { d.Format = fg.FormatRGBA16Float }},
		{"extent", func(d *fg.TextureDesc) { d.Width = 128 }},
		{"usage", func(d *fg.TextureDesc) { d.Usage = fg.TextureUsageStorage }},
		{"mips", func(d *fg.TextureDesc) { d.MipLevels = 4 }},
		{"layers", func(d *fg.TextureDesc) { d.ArrayLayers = 6 }},
		{"samples", func(d *fg.TextureDesc) { d.SampleCount = 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := fgtest.NewDevice()
			pool := fg.NewResourcePool(dev, viewport)

			old, err := pool.CreateTexture(base, "tex")
			require.NoError(t, err)
			changed := base
			tt.mutate(&changed)
			fresh, err := pool.CreateTexture(changed, "tex")
			require.NoError(t, err)

			assert.NotSame(t, old, fresh)
			assert.True(t, old.(*fgtest.Texture).Released)
			cached, ok := pool.Texture("tex")
			require.True(t, ok)
			assert.Same(t, fresh, cached)
			assert.Equal(t, 1, pool.Stats().Reallocations)
			assert.Equal(t, 1, pool.Stats().LiveTextures)
		})
	}
}

func TestPoolBuffers(t *testing.T) {
	dev := fgtest.NewDevice()
	pool := fg.NewResourcePool(dev, viewport)

	b1, err := pool.CreateBuffer(fg.BufferDesc{Size: 64, Usage: fg.BufferUsageStorage}, "args")
	require.NoError(t, err)
	b2, err := pool.CreateBuffer(fg.BufferDesc{Size: 64, Usage: fg.BufferUsageStorage}, "args")
	require.NoError(t, err)
	assert.Same(t, b1, b2)

	b3, err := pool.CreateBuffer(fg.BufferDesc{Size: 128, Usage: fg.BufferUsageStorage}, "args")
	require.NoError(t, err)
	assert.NotSame(t, b1, b3)
	assert.True(t, b1.(*fgtest.Buffer).Released)

	_, ok := pool.Texture("args")
	assert.False(t, ok, "buffers and textures are cached separately")

	dev.FailNext = true
	_, err = pool.CreateBuffer(fg.BufferDesc{Size: 256}, "args")
	require.ErrorIs(t, err, fgtest.ErrInjected)
	cached, ok := pool.Buffer("args")
	require.True(t, ok)
	assert.Same(t, b3, cached, "a failed reallocation keeps the cached buffer")
	assert.False(t, b3.(*fgtest.Buffer).Released)
}

func TestPoolResizeAffectsLaterCreations(t *testing.T) {
	dev := fgtest.NewDevice()
	pool := fg.NewResourcePool(dev, fg.Extent{Width: 100, Height: 50})

	desc := fg.RelativeTexture(fg.FormatRGBA8Unorm, 1)
	before, err := pool.CreateTexture(desc, "rt")
	require.NoError(t, err)
	assert.Equal(t, uint32(100), before.Desc().Width)

	pool.Resize(fg.Extent{Width: 200, Height: 100})
	assert.Equal(t, fg.Extent{Width: 200, Height: 100}, pool.Viewport())
	assert.Equal(t, uint32(100), before.Desc().Width, "existing objects keep their size")

	after, err := pool.CreateTexture(desc, "rt")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, uint32(200), after.Desc().Width)
	assert.Equal(t, uint32(100), after.Desc().Height)

	absolute := fg.AbsoluteTexture(fg.FormatR32Float, 16, 16)
	a1, err := pool.CreateTexture(absolute, "abs")
	require.NoError(t, err)
	pool.Resize(fg.Extent{Width: 300, Height: 300})
	a2, err := pool.CreateTexture(absolute, "abs")
	require.NoError(t, err)
	assert.Same(t, a1, a2, "absolute textures ignore the viewport")
}

func TestPoolRelease(t *testing.T) {
	dev := fgtest.NewDevice()
	pool := fg.NewResourcePool(dev, viewport)

	_, err := pool.CreateBuffer(fg.BufferDesc{Size: 4}, "b")
	require.NoError(t, err)
	_, err = pool.CreateTexture(fg.AbsoluteTexture(fg.FormatR8Unorm, 1, 1), "t")
	require.NoError(t, err)

	pool.Release()
	assert.True(t, dev.Buffers[0].Released)
	assert.True(t, dev.Textures[0].Released)
	stats := pool.Stats()
	assert.Zero(t, stats.LiveBuffers)
	assert.Zero(t, stats.LiveTextures)
	assert.Equal(t, 2, stats.Allocations)
}

func TestBuilderSharesPool(t *testing.T) {
	dev := fgtest.NewDevice()
	pool := fg.NewResourcePool(dev, viewport)

	build := func() fg.Texture {
		b := fg.NewBuilder(dev, fgtest.NewCommandContext(), viewport, fg.WithPool(pool))
		out := b.CreateTexture(fg.RelativeTexture(fg.FormatRGBA8Unorm, 1), "shared")
		b.AddPass("draw", fg.PassRaster, nil, nil).AddColorAttachment(out, fg.ClearStore)
		require.NoError(t, b.SetOutput(out))
		require.NoError(t, b.Compile())
		assert.Same(t, pool, b.Pool())
		tex, ok := pool.Texture("shared")
		require.True(t, ok)
		return tex
	}

	assert.Same(t, build(), build())
	assert.Len(t, dev.Textures, 1)
}

func TestBuilderReleaseUnbindsPool(t *testing.T) {
	b, dev, _ := newBuilder(t)

	out := b.CreateBuffer(fg.BufferDesc{Size: 16}, "out")
	b.AddPass("fill", fg.PassCompute, nil, nil).WriteStorageBuffer(out)
	require.NoError(t, b.SetOutput(out))
	require.NoError(t, b.Compile())
	require.NoError(t, b.Execute())

	b.Release()
	require.Len(t, dev.Buffers, 1)
	assert.True(t, dev.Buffers[0].Released)
	assert.False(t, b.Valid())
	assert.False(t, b.IsCacheValid())
	assert.ErrorIs(t, b.Execute(), fg.ErrInvalidGraph, "released objects must not be recorded")

	require.NoError(t, b.Compile())
	require.Len(t, dev.Buffers, 2)
	assert.False(t, dev.Buffers[1].Released)
	require.NoError(t, b.Execute())
}
