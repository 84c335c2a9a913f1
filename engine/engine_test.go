package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/profiler"
	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/fgtest"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/graphdesc"
)

type fakeFrames struct {
	device   *fgtest.Device
	viewport fg.Extent
	beginErr error

	begins   int
	ends     int
	presents int
	resizes  []fg.Extent
}

func newFakeFrames(width, height uint32) *fakeFrames {
	return &fakeFrames{device: fgtest.NewDevice(), viewport: fg.Extent{Width: width, Height: height}}
}

func (f *fakeFrames) Resize(width, height int) error {
	f.viewport = fg.Extent{Width: uint32(width), Height: uint32(height)}
	f.resizes = append(f.resizes, f.viewport)
	return nil
}

func (f *fakeFrames) Viewport() fg.Extent { return f.viewport }
func (f *fakeFrames) Device() fg.Device   { return f.device }

func (f *fakeFrames) EndFrame() error {
	f.ends++
	return nil
}

func (f *fakeFrames) Present() {
	f.presents++
}

func (f *fakeFrames) BeginFrame() (fg.Texture, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begins++
	desc := fg.AbsoluteTexture(fg.FormatBGRA8Unorm, f.viewport.Width, f.viewport.Height)
	desc.Usage = fg.TextureUsageColorAttachment
	return fgtest.NewTexture("swapchain", desc, fg.LayoutUndefined), nil
}

func withFrames(frames frameRenderer, cmd fg.CommandContext) EngineBuilderOption {
	return func(e *engine) {
		e.frames = frames
		e.commands = cmd
	}
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (*engine, *fakeFrames, *fgtest.CommandContext, *bytes.Buffer) {
	t.Helper()
	frames := newFakeFrames(64, 32)
	cmd := fgtest.NewCommandContext()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	opts := append([]EngineBuilderOption{
		withFrames(frames, cmd),
		WithLogger(logger),
		WithComputeWorkers(0),
	}, options...)
	e := newEngine(opts...)
	require.NotNil(t, e.Builder())
	return e, frames, cmd, &logs
}

// deferredSetup declares gbuffer -> lighting -> backbuffer and counts its invocations.
func deferredSetup(calls *int) GraphSetupFunc {
	return func(b fg.Builder, backbuffer fg.TextureHandle) error {
		*calls++
		albedo := b.CreateTexture(fg.RelativeTexture(fg.FormatRGBA8Unorm, 1), "albedo")
		b.AddPass("gbuffer", fg.PassRaster, nil, fgtest.MarkFunc()).
			AddColorAttachment(albedo, fg.ClearStore)
		b.AddPass("lighting", fg.PassRaster, nil, fgtest.MarkFunc()).
			ReadSampledTexture(albedo).
			AddColorAttachment(backbuffer, fg.ClearStore)
		return b.SetOutput(backbuffer)
	}
}

func TestRenderFrameBuildsOnceAndReplays(t *testing.T) {
	calls := 0
	rendered := 0
	e, frames, cmd, _ := newTestEngine(t, WithGraphSetup(deferredSetup(&calls)))
	e.SetRenderCallback(func(float32) { rendered++ })

	e.renderFrame(0.016)
	e.renderFrame(0.016)

	assert.Equal(t, 1, calls, "an unchanged graph is not rebuilt")
	assert.Equal(t, []string{"gbuffer", "lighting", "gbuffer", "lighting"}, cmd.Marks())
	assert.Equal(t, 2, frames.begins)
	assert.Equal(t, 2, frames.ends)
	assert.Equal(t, 2, frames.presents)
	assert.Equal(t, 2, rendered)
	assert.True(t, e.Builder().Valid())
	assert.Equal(t, 2, e.Builder().Stats().Passes)
}

func TestInvalidateGraphRebuilds(t *testing.T) {
	calls := 0
	e, _, _, _ := newTestEngine(t, WithGraphSetup(deferredSetup(&calls)))

	e.renderFrame(0)
	e.InvalidateGraph()
	e.renderFrame(0)
	assert.Equal(t, 2, calls)

	other := 0
	e.SetGraphSetup(deferredSetup(&other))
	e.renderFrame(0)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, other)
}

func TestResizeRebuildsAtNewViewport(t *testing.T) {
	calls := 0
	e, frames, _, _ := newTestEngine(t, WithGraphSetup(deferredSetup(&calls)))

	e.renderFrame(0)
	e.requestResize(0, 0)
	e.renderFrame(0)
	assert.Empty(t, frames.resizes, "zero sizes are ignored")
	assert.Equal(t, 1, calls)

	e.requestResize(800, 600)
	e.renderFrame(0)
	want := fg.Extent{Width: 800, Height: 600}
	assert.Equal(t, []fg.Extent{want}, frames.resizes)
	assert.Equal(t, want, e.Builder().Pool().Viewport())
	assert.Equal(t, 2, calls)

	albedo, ok := e.Builder().Pool().Texture("albedo")
	require.True(t, ok)
	assert.Equal(t, uint32(800), albedo.Desc().Width)
}

func TestInvalidGraphLoggedOncePerRebuild(t *testing.T) {
	calls := 0
	setup := func(b fg.Builder, backbuffer fg.TextureHandle) error {
		calls++
		b.AddPass("orphan", fg.PassRaster, nil, fgtest.MarkFunc()).
			AddColorAttachment(backbuffer, fg.ClearStore)
		return nil
	}
	e, frames, cmd, logs := newTestEngine(t, WithGraphSetup(setup))

	for range 3 {
		e.renderFrame(0)
	}

	assert.Equal(t, 1, calls)
	assert.False(t, e.Builder().Valid())
	assert.Empty(t, cmd.Marks())
	assert.Equal(t, 3, frames.presents, "frames are presented even when the graph is invalid")
	assert.Equal(t, 1, strings.Count(logs.String(), "graph rebuild failed"))

	e.InvalidateGraph()
	e.renderFrame(0)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, strings.Count(logs.String(), "graph rebuild failed"))
}

func TestSetupErrorSkipsExecution(t *testing.T) {
	boom := errors.New("boom")
	e, frames, cmd, logs := newTestEngine(t, WithGraphSetup(func(fg.Builder, fg.TextureHandle) error {
		return boom
	}))

	e.renderFrame(0)
	assert.False(t, e.Builder().Valid())
	assert.Empty(t, cmd.Ops())
	assert.Equal(t, 1, frames.presents)
	assert.Contains(t, logs.String(), "boom")
}

func TestBeginFrameErrorSkipsFrame(t *testing.T) {
	calls := 0
	e, frames, _, logs := newTestEngine(t, WithGraphSetup(deferredSetup(&calls)))
	frames.beginErr = errors.New("surface lost")

	e.renderFrame(0)
	assert.Zero(t, calls)
	assert.Zero(t, frames.ends)
	assert.Zero(t, frames.presents)
	assert.Contains(t, logs.String(), "surface lost")

	frames.beginErr = nil
	e.renderFrame(0)
	assert.Equal(t, 1, calls, "the pending rebuild survives a skipped frame")
}

func TestNoGraphConfigured(t *testing.T) {
	e, frames, cmd, _ := newTestEngine(t)

	e.renderFrame(0)
	assert.False(t, e.Builder().Valid())
	assert.Empty(t, cmd.Ops())
	assert.Equal(t, 1, frames.presents)
}

func TestGraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blit.hcl")
	src := `
texture "scene" {
  format = "rgba16_float"
  scale  = 0.5
}

texture "backbuffer" {
  format   = "bgra8_unorm"
  external = true
}

pass "draw" {
  flags = ["raster"]
  write "texture" "scene" {}
}

pass "blit" {
  flags = ["raster"]
  read "texture" "scene" {}
  write "texture" "backbuffer" {}
}

output = "backbuffer"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	e, _, cmd, _ := newTestEngine(t, WithGraphFile(path, graphdesc.Bindings{
		Passes: map[string]fg.ExecuteFunc{
			"draw": fgtest.MarkFunc(),
			"blit": fgtest.MarkFunc(),
		},
	}))

	e.renderFrame(0)
	require.True(t, e.Builder().Valid(), "%v", e.Builder().Err())
	assert.Equal(t, []string{"draw", "blit"}, cmd.Marks())

	scene, ok := e.Builder().Pool().Texture("scene")
	require.True(t, ok)
	assert.Equal(t, uint32(32), scene.Desc().Width)
	assert.Equal(t, uint32(16), scene.Desc().Height)
}

func TestPrepareJobs(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"inline", 0},
		{"pool", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _, _ := newTestEngine(t, WithComputeWorkers(tt.workers))

			var ran atomic.Int32
			for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
				e.AddPrepareJob(name, func(dt float32) error {
					assert.InDelta(t, 0.5, dt, 1e-6)
					ran.Add(1)
					return nil
				})
			}
			require.NoError(t, e.runPrepareJobs(0.5))
			assert.Equal(t, int32(6), ran.Load())

			e.AddPrepareJob("c", func(float32) error { return errors.New("stale instances") })
			e.AddPrepareJob("g", func(float32) error { panic("bad job") })
			err := e.runPrepareJobs(0.5)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `prepare "c": stale instances`)
			assert.Contains(t, err.Error(), `prepare "g": panic: bad job`)
			assert.Equal(t, int32(11), ran.Load(), "a replaced job runs instead of the original")

			e.RemovePrepareJob("c")
			e.RemovePrepareJob("g")
			require.NoError(t, e.runPrepareJobs(0.5))
		})
	}
}

func TestProfilerRecordsFrames(t *testing.T) {
	calls := 0
	now := time.Unix(0, 0)
	e, _, _, logs := newTestEngine(t,
		WithGraphSetup(deferredSetup(&calls)),
		WithProfiling(true),
		WithProfilerOptions(
			profiler.WithInterval(time.Second),
			profiler.WithClock(func() time.Time { return now }),
			profiler.WithMemoryStats(false),
		),
	)

	for range 3 {
		e.renderFrame(0)
	}
	assert.Zero(t, e.profiler.Last().Frames)

	now = now.Add(time.Second)
	e.renderFrame(0)

	r := e.profiler.Last()
	assert.Equal(t, 4, r.Frames)
	assert.Equal(t, 1, r.Rebuilds)
	assert.Equal(t, 8, r.Graph.Passes)
	assert.Equal(t, 1, r.Pool.LiveTextures)
	assert.InDelta(t, 4.0, r.FPS, 1e-9)
	assert.Contains(t, logs.String(), "msg=profiler")
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.TickRate = 120
	cfg.Engine.FrameLimit = 50
	cfg.Engine.ComputeWorkers = 3
	cfg.Engine.Profiling = true
	cfg.Graph.Backbuffer = "swap"
	cfg.Graph.File = "graphs/deferred.hcl"

	e := newEngine(WithConfig(&cfg))
	assert.Equal(t, time.Second/120, e.engineTickRate)
	assert.Equal(t, 20*time.Millisecond, e.renderFrameLimit)
	assert.Equal(t, 3, e.computeWorkers)
	assert.True(t, e.profilingEnabled)
	assert.Equal(t, "swap", e.backbuffer)
	assert.Equal(t, "graphs/deferred.hcl", e.graphFile)
	assert.Nil(t, e.Builder(), "no renderer, no graph")
}

func TestTickRate(t *testing.T) {
	e := newEngine(WithTickRate(0), WithComputeWorkers(0))
	assert.Equal(t, time.Second/60, e.engineTickRate)

	e.SetTickRate(30)
	assert.Equal(t, time.Second/30, e.engineTickRate)

	e.SetRenderFrameLimit(0)
	assert.Zero(t, e.renderFrameLimit)
	e.SetRenderFrameLimit(100)
	assert.Equal(t, 10*time.Millisecond, e.renderFrameLimit)
}

func TestQuitIsIdempotent(t *testing.T) {
	e := newEngine(WithComputeWorkers(0))
	e.Quit()
	e.Quit()
	select {
	case <-e.quitChannel:
	default:
		t.Fatal("quit channel not closed")
	}
	assert.False(t, e.running.Load())
}
