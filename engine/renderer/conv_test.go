package renderer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/fgtest"
)

func TestConvFormat(t *testing.T) {
	for f, w := range formats {
		assert.Equal(t, w, convFormat(f))
		assert.Equal(t, f, formatFromWGPU(w))
	}
	assert.Equal(t, wgpu.TextureFormatUndefined, convFormat(fg.FormatUndefined))
	assert.Equal(t, fg.FormatUndefined, formatFromWGPU(wgpu.TextureFormatUndefined))
}

func TestConvBufferUsage(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, convBufferUsage(fg.BufferUsageVertex|fg.BufferUsageCopyDst))
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageIndirect, convBufferUsage(fg.BufferUsageStorage|fg.BufferUsageIndirect))
	assert.Zero(t, convBufferUsage(fg.BufferUsageNone))
}

func TestConvTextureUsage(t *testing.T) {
	tests := []struct {
		name string
		in   fg.TextureUsage
		want wgpu.TextureUsage
	}{
		{"sampled", fg.TextureUsageSampled, wgpu.TextureUsageTextureBinding},
		{"input attachment", fg.TextureUsageInputAttachment, wgpu.TextureUsageTextureBinding},
		{"storage", fg.TextureUsageStorage, wgpu.TextureUsageStorageBinding},
		{"color", fg.TextureUsageColorAttachment, wgpu.TextureUsageRenderAttachment},
		{"depth", fg.TextureUsageDepthStencilAttachment, wgpu.TextureUsageRenderAttachment},
		{"copy", fg.TextureUsageCopySrc | fg.TextureUsageCopyDst, wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst},
		{"color sampled", fg.TextureUsageColorAttachment | fg.TextureUsageSampled, wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convTextureUsage(tt.in))
		})
	}
}

func TestConvOps(t *testing.T) {
	assert.Equal(t, wgpu.LoadOpLoad, convLoadOp(fg.LoadOpLoad))
	assert.Equal(t, wgpu.LoadOpClear, convLoadOp(fg.LoadOpClear))
	assert.Equal(t, wgpu.LoadOpClear, convLoadOp(fg.LoadOpDontCare))
	assert.Equal(t, wgpu.StoreOpStore, convStoreOp(fg.StoreOpStore))
	assert.Equal(t, wgpu.StoreOpDiscard, convStoreOp(fg.StoreOpDiscard))
	assert.Equal(t, wgpu.PresentModeFifo, convPresentMode(PresentModeVSync))
	assert.Equal(t, wgpu.PresentModeImmediate, convPresentMode(PresentModeUncapped))
}

func TestColorAttachment(t *testing.T) {
	tex := fgtest.NewTexture("hdr", fg.AbsoluteTexture(fg.FormatRGBA16Float, 4, 4), fg.LayoutUndefined)
	ops := fg.ClearStore
	ops.ClearColor = fg.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}

	a := colorAttachment(fg.ColorTarget{Texture: tex, Ops: ops})
	assert.Nil(t, a.View, "textures from other devices have no view")
	assert.Equal(t, wgpu.LoadOpClear, a.LoadOp)
	assert.Equal(t, wgpu.StoreOpStore, a.StoreOp)
	assert.Equal(t, wgpu.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}, a.ClearValue)
}

func TestDepthAttachment(t *testing.T) {
	assert.Nil(t, depthAttachment(nil))

	depth := fgtest.NewTexture("depth", fg.AbsoluteTexture(fg.FormatDepth32Float, 4, 4), fg.LayoutUndefined)
	a := depthAttachment(&fg.DepthTarget{Texture: depth, Ops: fg.ClearStore})
	assert.Equal(t, wgpu.LoadOpClear, a.DepthLoadOp)
	assert.Equal(t, wgpu.StoreOpStore, a.DepthStoreOp)
	assert.Equal(t, float32(1), a.DepthClearValue)
	assert.Zero(t, a.StencilLoadOp, "formats without stencil leave stencil ops undefined")

	stencil := fgtest.NewTexture("ds", fg.AbsoluteTexture(fg.FormatDepth24PlusStencil8, 4, 4), fg.LayoutUndefined)
	a = depthAttachment(&fg.DepthTarget{Texture: stencil, Ops: fg.LoadStore})
	assert.Equal(t, wgpu.LoadOpLoad, a.StencilLoadOp)
	assert.Equal(t, wgpu.StoreOpStore, a.StencilStoreOp)

	a = depthAttachment(&fg.DepthTarget{Texture: stencil, Ops: fg.LoadStore, ReadOnly: true})
	assert.True(t, a.DepthReadOnly)
	assert.True(t, a.StencilReadOnly)
	assert.Zero(t, a.DepthLoadOp)
	assert.Zero(t, a.DepthStoreOp)
	assert.Zero(t, a.StencilLoadOp)
}

func TestCommandsCountBarriers(t *testing.T) {
	var buf bytes.Buffer
	c := newCommands(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	b := fgtest.NewBuffer("args", fg.BufferDesc{Size: 16})
	tex := fgtest.NewTexture("albedo", fg.AbsoluteTexture(fg.FormatRGBA8Unorm, 4, 4), fg.LayoutUndefined)

	c.FlushBarriers()
	assert.Zero(t, c.Stats().Flushes, "empty flushes are not recorded")

	c.BufferBarrier(b, 0, fg.WholeSize, fg.StageComputeShader, fg.StageDrawIndirect, fg.AccessShaderWrite, fg.AccessIndirectCommandRead)
	c.ImageBarrier(tex, fg.WholeTexture(tex.Desc()), fg.LayoutUndefined, fg.LayoutColorAttachment,
		fg.StageNone, fg.StageColorAttachmentOutput, fg.AccessNone, fg.AccessColorAttachmentWrite)
	c.FlushBarriers()

	assert.Equal(t, CommandStats{BufferBarriers: 1, ImageBarriers: 1, Flushes: 1}, c.Stats())
	assert.Contains(t, buf.String(), "buffer=args")
	assert.Contains(t, buf.String(), "to=color-attachment")

	c.begin(nil)
	assert.Equal(t, CommandStats{}, c.Stats(), "begin clears the counters")
}

func TestCommandsOutsideFrame(t *testing.T) {
	var buf bytes.Buffer
	c := newCommands(slog.New(slog.NewTextHandler(&buf, nil)))

	c.BeginRenderScope(fg.RenderScope{Label: "gbuffer"})
	require.Nil(t, c.RenderPass())
	c.EndRenderScope()
	assert.Nil(t, c.BeginComputePass())
	assert.Nil(t, c.Encoder())
	assert.Zero(t, c.Stats().RenderPasses)
	assert.Contains(t, buf.String(), "render scope outside of a frame")
}

func TestParsePresentMode(t *testing.T) {
	m, err := ParsePresentMode("VSync")
	require.NoError(t, err)
	assert.Equal(t, PresentModeVSync, m)

	m, err = ParsePresentMode("uncapped")
	require.NoError(t, err)
	assert.Equal(t, PresentModeUncapped, m)

	_, err = ParsePresentMode("mailbox")
	require.Error(t, err)
}
