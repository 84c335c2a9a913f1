package profiler

import (
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
)

// Report is one interval's worth of frame and memory statistics.
type Report struct {
	Frames   int
	Elapsed  time.Duration
	FPS      float64
	Rebuilds int

	// Graph counters summed over the interval.
	Graph framegraph.Stats
	// Pool is the last pool snapshot recorded in the interval.
	Pool framegraph.PoolStats

	HeapMB      float64
	SysMB       float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// BarriersPerFrame returns the mean number of barriers emitted per frame.
func (r Report) BarriersPerFrame() float64 {
	if r.Frames == 0 {
		return 0
	}
	return float64(r.Graph.Barriers()) / float64(r.Frames)
}

// Profiler tracks frame rate, frame graph and memory statistics for performance monitoring.
// Outputs a report to the logger at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	now            func() time.Time
	updateInterval time.Duration
	readMem        bool

	frameCount int
	lastTime   time.Time
	rebuilds   int
	graph      framegraph.Stats
	pool       framegraph.PoolStats
	last       Report

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options for the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         framegraph.Logger(),
		now:            time.Now,
		updateInterval: time.Second,
		readMem:        true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// RecordGraph adds one executed frame's graph statistics to the current interval.
//
// Parameters:
//   - s: the statistics returned by Builder.Stats after Execute
func (p *Profiler) RecordGraph(s framegraph.Stats) {
	p.graph.Passes += s.Passes
	p.graph.BufferBarriers += s.BufferBarriers
	p.graph.ImageBarriers += s.ImageBarriers
	p.graph.Flushes += s.Flushes
	p.graph.RenderScopes += s.RenderScopes
	p.graph.Errors += s.Errors
}

// RecordPool stores the latest resource pool snapshot.
//
// Parameters:
//   - s: the statistics returned by ResourcePool.Stats
func (p *Profiler) RecordPool(s framegraph.PoolStats) {
	p.pool = s
}

// RecordRebuild counts a graph recompilation in the current interval.
func (p *Profiler) RecordRebuild() {
	p.rebuilds++
}

// Last returns the most recent report.
func (p *Profiler) Last() Report {
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs a report when the update interval has elapsed.
//
// Returns:
//   - bool: true if a report was logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	r := Report{
		Frames:   p.frameCount,
		Elapsed:  elapsed,
		FPS:      float64(p.frameCount) / elapsed.Seconds(),
		Rebuilds: p.rebuilds,
		Graph:    p.graph,
		Pool:     p.pool,
	}
	if p.readMem {
		p.readMemory(&r, elapsed)
	}
	p.last = r

	p.logger.Info("profiler",
		slog.String("fps", formatFloat(r.FPS)),
		slog.Int("passes", r.Graph.Passes),
		slog.String("barriers_per_frame", formatFloat(r.BarriersPerFrame())),
		slog.Int("flushes", r.Graph.Flushes),
		slog.Int("rebuilds", r.Rebuilds),
		slog.Int("pool_textures", r.Pool.LiveTextures),
		slog.Int("pool_buffers", r.Pool.LiveBuffers),
		slog.Int("pool_allocations", r.Pool.Allocations),
		slog.String("heap_mb", formatFloat(r.HeapMB)),
		slog.String("alloc_rate_mb", formatFloat(r.AllocRateMB)),
		slog.Any("gc", r.GCCount),
		slog.Any("gc_last_us", r.LastPauseUs),
		slog.Any("gc_max_us", r.MaxPauseUs),
	)

	p.frameCount = 0
	p.rebuilds = 0
	p.graph = framegraph.Stats{}
	p.lastTime = currentTime
	return true
}

func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	r.GCCount = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
