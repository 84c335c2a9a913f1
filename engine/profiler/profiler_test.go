package profiler_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-graph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newProfiler(t *testing.T) (*profiler.Profiler, *fakeClock, *bytes.Buffer) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := profiler.NewProfiler(
		profiler.WithClock(clock.now),
		profiler.WithInterval(time.Second),
		profiler.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		profiler.WithMemoryStats(false),
	)
	return p, clock, &buf
}

func TestTickReportsPerInterval(t *testing.T) {
	p, clock, buf := newProfiler(t)

	frame := framegraph.Stats{Passes: 4, BufferBarriers: 1, ImageBarriers: 2, Flushes: 2, RenderScopes: 2}
	for range 9 {
		p.RecordGraph(frame)
		clock.advance(100 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	p.RecordGraph(frame)
	p.RecordPool(framegraph.PoolStats{LiveTextures: 3, LiveBuffers: 1, Allocations: 4})
	p.RecordRebuild()
	clock.advance(100 * time.Millisecond)
	require.True(t, p.Tick())

	r := p.Last()
	assert.Equal(t, 10, r.Frames)
	assert.InDelta(t, 10.0, r.FPS, 1e-9)
	assert.Equal(t, 40, r.Graph.Passes)
	assert.Equal(t, 20, r.Graph.Flushes)
	assert.InDelta(t, 3.0, r.BarriersPerFrame(), 1e-9)
	assert.Equal(t, 1, r.Rebuilds)
	assert.Equal(t, 3, r.Pool.LiveTextures)
	assert.Contains(t, buf.String(), "fps=10.00")
	assert.Contains(t, buf.String(), "barriers_per_frame=3.00")
}

func TestTickResetsCounters(t *testing.T) {
	p, clock, _ := newProfiler(t)

	p.RecordGraph(framegraph.Stats{Passes: 5})
	clock.advance(2 * time.Second)
	require.True(t, p.Tick())

	clock.advance(time.Second)
	require.True(t, p.Tick())
	r := p.Last()
	assert.Equal(t, 1, r.Frames)
	assert.Zero(t, r.Graph.Passes)
	assert.Zero(t, r.Rebuilds)
}

func TestEmptyReport(t *testing.T) {
	assert.Zero(t, profiler.Report{}.BarriersPerFrame())
}

func TestMemoryStats(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := profiler.NewProfiler(profiler.WithClock(clock.now), profiler.WithLogger(slog.New(slog.DiscardHandler)))
	clock.advance(time.Second)
	require.True(t, p.Tick())
	assert.Positive(t, p.Last().SysMB)
}
