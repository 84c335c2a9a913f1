package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/graphdesc"
	"github.com/Carmen-Shannon/oxy-graph/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfilerOptions passes options to the profiler the engine creates.
//
// Parameters:
//   - options: profiler options such as profiler.WithInterval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfilerOptions(options ...profiler.ProfilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.profilerOptions = append(e.profilerOptions, options...)
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = frameDuration(fps)
	}
}

// WithWindow sets the window the engine processes messages for and follows resizes of.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer whose device, viewport and command context the frame graph is
// built against. The caller keeps ownership and releases it after Run returns.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithComputeWorkers sets the number of workers prepare jobs run on.
// Values <= 0 run prepare jobs inline on the render goroutine.
//
// Parameters:
//   - n: the worker count (default NumCPU-1)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithComputeWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		e.computeWorkers = n
	}
}

// WithPrepareJob registers a prepare job during engine construction.
//
// Parameters:
//   - name: the unique job name
//   - fn: the job
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPrepareJob(name string, fn PrepareFunc) EngineBuilderOption {
	return func(e *engine) {
		e.AddPrepareJob(name, fn)
	}
}

// WithGraphSetup sets the function that declares the frame graph on every rebuild.
//
// Parameters:
//   - setup: the declaring function
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGraphSetup(setup GraphSetupFunc) EngineBuilderOption {
	return func(e *engine) {
		e.graphSetup = setup
		e.graphFile = ""
	}
}

// WithGraphFile declares the frame graph from an HCL description instead of a setup function.
// The file is evaluated against the current viewport on every rebuild; the swapchain texture
// is bound to the backbuffer name.
//
// Parameters:
//   - path: the description file
//   - bind: pass bodies and external objects referenced by the description
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGraphFile(path string, bind graphdesc.Bindings) EngineBuilderOption {
	return func(e *engine) {
		e.graphFile = path
		e.graphBindings = bind
	}
}

// WithGraphBindings sets the pass bodies and external objects of the graph description
// without changing its path.
//
// Parameters:
//   - bind: the bindings
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGraphBindings(bind graphdesc.Bindings) EngineBuilderOption {
	return func(e *engine) {
		e.graphBindings = bind
	}
}

// WithBackbuffer sets the name the swapchain texture is registered under (default "backbuffer").
//
// Parameters:
//   - name: the external texture name
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackbuffer(name string) EngineBuilderOption {
	return func(e *engine) {
		if name != "" {
			e.backbuffer = name
		}
	}
}

// WithLogger sets the logger for frame, rebuild and profiling records.
//
// Parameters:
//   - l: the logger; nil keeps the frame graph package logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConfig applies the engine and graph sections of a configuration.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if cfg == nil {
			return
		}
		WithTickRate(cfg.Engine.TickRate)(e)
		WithRenderFrameLimit(cfg.Engine.FrameLimit)(e)
		if cfg.Engine.ComputeWorkers > 0 {
			e.computeWorkers = cfg.Engine.ComputeWorkers
		}
		e.profilingEnabled = cfg.Engine.Profiling
		e.profilerOptions = append(e.profilerOptions, profiler.WithInterval(cfg.Engine.ProfileEvery()))
		WithBackbuffer(cfg.Graph.Backbuffer)(e)
		if cfg.Graph.File != "" {
			e.graphFile = cfg.Graph.File
		}
	}
}

