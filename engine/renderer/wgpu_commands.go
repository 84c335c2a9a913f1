package renderer

import (
	"log/slog"
	"sync"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/cogentcore/webgpu/wgpu"
)

// CommandStats counts the commands recorded since the last BeginFrame.
type CommandStats struct {
	BufferBarriers int
	ImageBarriers  int
	Flushes        int
	RenderPasses   int
	ComputePasses  int
}

// Commands is the framegraph.CommandContext of a WebGPU frame. Pass bodies reach the live
// encoders through it.
//
// WebGPU tracks hazards inside the implementation, so barriers are only counted and logged;
// render scopes become render passes on the frame encoder.
type Commands interface {
	fg.CommandContext

	// RenderPass returns the render pass opened by the current render scope, or nil outside a raster pass.
	//
	// Returns:
	//   - *wgpu.RenderPassEncoder: the open render pass
	RenderPass() *wgpu.RenderPassEncoder

	// BeginComputePass opens a compute pass on the frame encoder. The caller must End it.
	//
	// Returns:
	//   - *wgpu.ComputePassEncoder: the compute pass, or nil when no frame is being recorded
	BeginComputePass() *wgpu.ComputePassEncoder

	// Encoder returns the frame's command encoder, or nil between frames.
	//
	// Returns:
	//   - *wgpu.CommandEncoder: the frame encoder
	Encoder() *wgpu.CommandEncoder

	// Stats returns the counters of the current frame.
	//
	// Returns:
	//   - CommandStats: the counters
	Stats() CommandStats
}

type gpuCommands struct {
	mu     *sync.Mutex
	logger *slog.Logger

	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder

	pendingBuffers int
	pendingImages  int
	stats          CommandStats
}

var _ Commands = &gpuCommands{}

func newCommands(logger *slog.Logger) *gpuCommands {
	return &gpuCommands{mu: &sync.Mutex{}, logger: logger}
}

// begin attaches the frame encoder and clears the counters.
func (c *gpuCommands) begin(encoder *wgpu.CommandEncoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encoder = encoder
	c.pass = nil
	c.pendingBuffers, c.pendingImages = 0, 0
	c.stats = CommandStats{}
}

// end closes a render pass left open by a failed pass body and detaches the encoder.
func (c *gpuCommands) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pass != nil {
		c.logger.Warn("renderer: render pass left open at end of frame")
		c.pass.End()
		c.pass = nil
	}
	c.encoder = nil
}

func (c *gpuCommands) BufferBarrier(buf fg.Buffer, offset, size uint64, srcStage, dstStage fg.Stage, srcAccess, dstAccess fg.Access) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingBuffers++
	c.stats.BufferBarriers++
	if buf != nil {
		c.logger.Debug("renderer: buffer barrier",
			slog.String("buffer", buf.Label()),
			slog.String("src", srcAccess.String()),
			slog.String("dst", dstAccess.String()))
	}
}

func (c *gpuCommands) ImageBarrier(tex fg.Texture, sub fg.Subresource, srcLayout, dstLayout fg.Layout, srcStage, dstStage fg.Stage, srcAccess, dstAccess fg.Access) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingImages++
	c.stats.ImageBarriers++
	if tex != nil {
		c.logger.Debug("renderer: image barrier",
			slog.String("texture", tex.Label()),
			slog.String("from", srcLayout.String()),
			slog.String("to", dstLayout.String()))
	}
}

func (c *gpuCommands) FlushBarriers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingBuffers+c.pendingImages == 0 {
		return
	}
	c.stats.Flushes++
	c.logger.Debug("renderer: flush barriers",
		slog.Int("buffers", c.pendingBuffers),
		slog.Int("images", c.pendingImages))
	c.pendingBuffers, c.pendingImages = 0, 0
}

func (c *gpuCommands) BeginRenderScope(scope fg.RenderScope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.encoder == nil {
		c.logger.Error("renderer: render scope outside of a frame", slog.String("pass", scope.Label))
		return
	}
	if c.pass != nil {
		c.logger.Warn("renderer: render scope opened inside another", slog.String("pass", scope.Label))
		c.pass.End()
		c.pass = nil
	}

	desc := &wgpu.RenderPassDescriptor{
		Label:                  scope.Label,
		DepthStencilAttachment: depthAttachment(scope.Depth),
	}
	for _, ct := range scope.Colors {
		desc.ColorAttachments = append(desc.ColorAttachments, colorAttachment(ct))
	}
	c.pass = c.encoder.BeginRenderPass(desc)
	c.stats.RenderPasses++
}

func (c *gpuCommands) EndRenderScope() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pass == nil {
		return
	}
	c.pass.End()
	c.pass = nil
}

func (c *gpuCommands) RenderPass() *wgpu.RenderPassEncoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pass
}

func (c *gpuCommands) BeginComputePass() *wgpu.ComputePassEncoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.encoder == nil {
		return nil
	}
	c.stats.ComputePasses++
	return c.encoder.BeginComputePass(nil)
}

func (c *gpuCommands) Encoder() *wgpu.CommandEncoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encoder
}

func (c *gpuCommands) Stats() CommandStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// RenderPass returns the open render pass of a raster pass body running on a WebGPU frame.
//
// Parameters:
//   - pc: the pass context given to the body
//
// Returns:
//   - *wgpu.RenderPassEncoder: the render pass, or nil outside a raster pass or a WebGPU frame
func RenderPass(pc fg.PassContext) *wgpu.RenderPassEncoder {
	if c, ok := pc.Command().(Commands); ok {
		return c.RenderPass()
	}
	return nil
}
