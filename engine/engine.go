package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph/graphdesc"
	"github.com/Carmen-Shannon/oxy-graph/engine/window"
)

// GraphSetupFunc declares a frame graph on a freshly reset builder.
// The swapchain texture of the frame is already registered as an external texture and its
// handle is passed in; the setup must set the graph output.
type GraphSetupFunc func(b framegraph.Builder, backbuffer framegraph.TextureHandle) error

// PrepareFunc is CPU work run before each frame is recorded, such as filling instance data.
// Prepare jobs run concurrently on the compute worker pool and must not touch the graph builder.
type PrepareFunc func(deltaTime float32) error

// frameRenderer is the part of renderer.Renderer the render loop drives.
type frameRenderer interface {
	Resize(width, height int) error
	Viewport() framegraph.Extent
	Device() framegraph.Device
	BeginFrame() (framegraph.Texture, error)
	EndFrame() error
	Present()
}

type prepareJob struct {
	name string
	fn   PrepareFunc
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	releaseOnce sync.Once

	logger *slog.Logger
	window window.Window

	renderer     renderer.Renderer
	ownsRenderer bool
	frames       frameRenderer
	commands     framegraph.CommandContext

	graph         framegraph.Builder
	graphSetup    GraphSetupFunc
	graphFile     string
	graphBindings graphdesc.Bindings
	backbuffer    string
	graphDirty    atomic.Bool
	pendingResize *framegraph.Extent

	prepareJobs    []prepareJob
	computeWorkers int
	computePool    worker.DynamicWorkerPool

	profiler         *profiler.Profiler
	profilerOptions  []profiler.ProfilerBuilderOption
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, the frame graph render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer frames are recorded with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer, or nil if the engine was built without one
	Renderer() renderer.Renderer

	// Builder returns the frame graph the render loop compiles and executes.
	// Declarations belong in the graph setup; calling Builder between frames is meant for
	// inspection such as ExecutionOrder and Stats.
	//
	// Returns:
	//   - framegraph.Builder: the builder, or nil if the engine has no renderer
	Builder() framegraph.Builder

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, physics, input processing, and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddPrepareJob registers CPU work run on the compute worker pool before each frame.
	// A job registered under an existing name replaces it.
	//
	// Parameters:
	//   - name: the unique job name used in error reports
	//   - fn: the job
	AddPrepareJob(name string, fn PrepareFunc)

	// RemovePrepareJob removes the prepare job registered under name.
	//
	// Parameters:
	//   - name: the job name
	RemovePrepareJob(name string)

	// SetGraphSetup replaces the graph declaration and schedules a rebuild on the next frame.
	//
	// Parameters:
	//   - setup: the function declaring the graph
	SetGraphSetup(setup GraphSetupFunc)

	// InvalidateGraph schedules a rebuild of the graph on the next frame.
	InvalidateGraph()

	// Run starts the engine and render loops and blocks processing window messages until the
	// window closes or Quit is called.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// When a renderer is supplied the frame graph is created against its device and viewport.
//
// Parameters:
//   - options: functional options for engine configuration (renderer, graph, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	return newEngine(options...)
}

func newEngine(options ...EngineBuilderOption) *engine {
	e := &engine{
		mu:               &sync.Mutex{},
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		wg:               sync.WaitGroup{},
		logger:           framegraph.Logger(),
		backbuffer:       "backbuffer",
		computeWorkers:   max(runtime.NumCPU()-1, 1),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	e.profiler = profiler.NewProfiler(append([]profiler.ProfilerBuilderOption{profiler.WithLogger(e.logger)}, e.profilerOptions...)...)

	if e.renderer != nil && e.frames == nil {
		e.frames = e.renderer
		e.commands = e.renderer.Commands()
	}
	if e.frames != nil {
		e.graph = framegraph.NewBuilder(e.frames.Device(), e.commands, e.frames.Viewport(), framegraph.WithLogger(e.logger))
		e.graphDirty.Store(true)
	}

	if e.computeWorkers > 0 {
		e.computePool = worker.NewDynamicWorkerPool(e.computeWorkers, 256, 1*time.Second)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.requestResize)
	}

	return e
}

// NewEngineFromConfig creates the window, renderer and logger described by cfg and an
// engine driving them. Options are applied after the configuration.
//
// Parameters:
//   - cfg: the validated configuration
//   - options: functional options overriding the configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the logger, window or renderer could not be created
func NewEngineFromConfig(cfg *config.Config, options ...EngineBuilderOption) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	framegraph.SetLogger(logger)

	w, err := window.NewWindow(window.WithConfig(cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("engine: create window: %w", err)
	}

	mode, err := renderer.ParsePresentMode(cfg.Renderer.PresentMode)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, w,
		renderer.WithPresentMode(mode),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceFallback),
		renderer.WithLogger(logger),
	)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("engine: create renderer: %w", err)
	}

	opts := []EngineBuilderOption{
		WithLogger(logger),
		WithConfig(cfg),
		WithWindow(w),
		WithRenderer(r),
		func(e *engine) { e.ownsRenderer = true },
	}
	return NewEngine(append(opts, options...)...), nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Builder() framegraph.Builder {
	return e.graph
}

func (e *engine) Run() {
	e.running.Store(true)
	e.handle()
	if e.window != nil {
		// The window must be closed on the thread that processes its messages.
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.shutdown()
			default:
			}
		})
		e.window.ProcessMessages()
	}
	e.shutdown()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// shutdown stops the loops, waits for them, then frees the pooled graph resources, the
// renderer when the engine created it, and the window.
func (e *engine) shutdown() {
	e.signalQuit()
	e.wg.Wait()
	e.releaseOnce.Do(func() {
		if e.graph != nil {
			e.graph.Release()
		}
		if e.ownsRenderer && e.renderer != nil {
			e.renderer.Release()
		}
		if e.window != nil {
			_ = e.window.Close()
		}
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine: render goroutine recovered from panic", slog.Any("panic", r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if e.window != nil && e.window.Minimized() {
				time.Sleep(10 * time.Millisecond)
				continue
			}

			e.renderFrame(dt)

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame records and presents one frame: pending resize, prepare jobs, swapchain
// acquisition, graph rebuild when needed, execution, submission and profiling.
func (e *engine) renderFrame(dt float32) {
	if e.frames == nil || e.graph == nil {
		return
	}

	e.applyResize()

	if err := e.runPrepareJobs(dt); err != nil {
		e.logger.Warn("engine: prepare jobs failed", slog.Any("error", err))
	}

	target, err := e.frames.BeginFrame()
	if err != nil {
		e.logger.Debug("engine: frame skipped", slog.Any("error", err))
		return
	}

	if e.graphDirty.Swap(false) || (e.graph.Valid() && !e.graph.IsCacheValid()) {
		e.rebuild(target)
	} else {
		e.graph.RegisterExternalTexture(e.backbuffer, target)
	}

	if e.graph.Valid() {
		if err := e.graph.Execute(); err != nil {
			e.logger.Warn("engine: graph execution reported errors", slog.Any("error", err))
		}
		e.profiler.RecordGraph(e.graph.Stats())
		e.profiler.RecordPool(e.graph.Pool().Stats())
	}

	if err := e.frames.EndFrame(); err != nil {
		e.logger.Error("engine: end frame", slog.Any("error", err))
	}
	e.frames.Present()

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}

	if e.profilingEnabled {
		e.profiler.Tick()
	}
}

// rebuild resets the graph, registers the frame's swapchain texture, runs the configured
// declaration and compiles. A failed rebuild is logged once and leaves the graph invalid
// until the next invalidation.
func (e *engine) rebuild(target framegraph.Texture) {
	e.mu.Lock()
	setup, file := e.graphSetup, e.graphFile
	bind := e.graphBindings
	e.mu.Unlock()

	e.graph.Reset()
	backbuffer := e.graph.RegisterExternalTexture(e.backbuffer, target)
	e.profiler.RecordRebuild()

	var err error
	switch {
	case file != "":
		err = e.applyGraphFile(file, bind, target)
	case setup != nil:
		err = setup(e.graph, backbuffer)
	default:
		e.logger.Debug("engine: no graph configured")
		return
	}
	if err == nil {
		err = e.graph.Compile()
	}
	if err != nil {
		e.logger.Error("engine: graph rebuild failed", slog.Any("error", err))
		return
	}
	e.logger.Debug("engine: graph rebuilt", slog.Int("passes", len(e.graph.ExecutionOrder())))
}

// applyGraphFile declares the graph described by an HCL file, evaluated at the current viewport.
func (e *engine) applyGraphFile(path string, bind graphdesc.Bindings, target framegraph.Texture) error {
	desc, err := graphdesc.Load(path, e.graph.Pool().Viewport())
	if err != nil {
		return err
	}
	bind.Textures = maps.Clone(bind.Textures)
	if bind.Textures == nil {
		bind.Textures = make(map[string]framegraph.Texture, 1)
	}
	bind.Textures[e.backbuffer] = target
	return desc.Apply(e.graph, bind)
}

// requestResize records a surface size change for the render goroutine to apply.
func (e *engine) requestResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingResize = &framegraph.Extent{Width: uint32(width), Height: uint32(height)}
}

// applyResize reconfigures the surface and the graph viewport for a pending resize.
func (e *engine) applyResize() {
	e.mu.Lock()
	size := e.pendingResize
	e.pendingResize = nil
	e.mu.Unlock()

	if size == nil {
		return
	}
	if err := e.frames.Resize(int(size.Width), int(size.Height)); err != nil {
		e.logger.Error("engine: resize surface", slog.Any("error", err))
		return
	}
	e.graph.Resize(*size)
	e.graphDirty.Store(true)
}

// runPrepareJobs runs every prepare job on the compute worker pool and waits for all of them.
// Without a pool the jobs run inline in registration order.
func (e *engine) runPrepareJobs(dt float32) error {
	e.mu.Lock()
	jobs := slices.Clone(e.prepareJobs)
	e.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}

	errs := make([]error, len(jobs))
	if e.computePool == nil {
		for i, j := range jobs {
			errs[i] = j.run(dt)
		}
		return errors.Join(errs...)
	}

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		e.computePool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				errs[i] = j.run(dt)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (j prepareJob) run(dt float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: prepare %q: panic: %v", j.name, r)
		}
	}()
	if err := j.fn(dt); err != nil {
		return fmt.Errorf("engine: prepare %q: %w", j.name, err)
	}
	return nil
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) AddPrepareJob(name string, fn PrepareFunc) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.prepareJobs {
		if e.prepareJobs[i].name == name {
			e.prepareJobs[i].fn = fn
			return
		}
	}
	e.prepareJobs = append(e.prepareJobs, prepareJob{name: name, fn: fn})
}

func (e *engine) RemovePrepareJob(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prepareJobs = slices.DeleteFunc(e.prepareJobs, func(j prepareJob) bool {
		return j.name == name
	})
}

func (e *engine) SetGraphSetup(setup GraphSetupFunc) {
	e.mu.Lock()
	e.graphSetup = setup
	e.graphFile = ""
	e.mu.Unlock()
	e.graphDirty.Store(true)
}

func (e *engine) InvalidateGraph() {
	e.graphDirty.Store(true)
}

// frameDuration converts a frame rate into the minimum duration of a frame; 0 means uncapped.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
