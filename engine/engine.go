// Package engine runs the frame loop: a fixed-rate tick goroutine for input and camera motion and
// a render goroutine that records one meshlet scene frame per iteration.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/camera"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/logger"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/profiler"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/scene"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/window"
	"go.uber.org/zap"
)

// frameRecord is what the engine submitted for a frame, kept until its stats are read back.
type frameRecord struct {
	desc  scene.RenderDescriptor
	flags uint32
}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration

	running  bool
	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	scene    scene.Scene

	settings config.RenderSettings

	profiler         *profiler.Profiler
	profilingEnabled bool

	// cullCheck compares each read-back GPU cull result with scene.CullCPU.
	cullCheck bool
	submitted map[uint64]frameRecord
	frames    uint64
	nextStats uint64 // lowest frame whose stats have not been consumed

	engineTickRate   time.Duration
	renderFrameLimit time.Duration
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32)
	windowCallback   func()

	log *zap.Logger
}

// Engine owns the window, renderer, camera and scene of a running application and drives
// their frame loop.
type Engine interface {
	// Window returns the window, or nil when running headless.
	Window() window.Window

	// Renderer returns the renderer the scene records into.
	Renderer() renderer.Renderer

	// Camera returns the camera whose matrices feed each frame.
	Camera() camera.Camera

	// Scene returns the rendered scene.
	Scene() scene.Scene

	// RenderSettings returns a copy of the current render settings.
	//
	// Returns:
	//   - config.RenderSettings: the settings the next frame will use
	RenderSettings() config.RenderSettings

	// UpdateRenderSettings edits the render settings. The change applies from the next frame;
	// a frame being recorded keeps the snapshot it started with.
	//
	// Parameters:
	//   - edit: function applied to the settings under the engine lock
	UpdateRenderSettings(edit func(s *config.RenderSettings))

	// EnableProfiler enables periodic performance samples in the log.
	EnableProfiler()

	// DisableProfiler disables performance samples.
	DisableProfiler()

	// SetTickRate sets the tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each tick.
	// Use this for input processing and camera motion.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetWindowCallback registers the function called on the window thread each message loop
	// iteration. Window methods such as SetTitle must be called from here.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetWindowCallback(callback func())

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the tick and render goroutines and runs the window message loop on the
	// calling thread. It blocks until the window closes or Quit is called, then releases the
	// scene and the renderer.
	Run()

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an engine. A renderer and a scene are required; a window is required for
// Run. Without a camera option a default orbit camera is created.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quit:            make(chan struct{}),
		settings:        config.Default().Render,
		profiler:        profiler.NewProfiler(time.Second),
		submitted:       make(map[uint64]frameRecord),
		engineTickRate:  time.Second / 60,
		log:             logger.Named("engine"),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.renderer == nil {
		panic("engine: a renderer is required")
	}
	if e.scene == nil {
		panic("engine: a scene is required")
	}
	if e.camera == nil {
		e.camera = camera.NewCamera(camera.WithController(camera.NewCameraController()))
	}

	e.renderer.SetClearColor(e.settings.ClearColor)

	if e.window != nil {
		if h := e.window.Height(); h > 0 {
			e.camera.SetAspect(float32(e.window.Width()) / float32(h))
		}
		e.window.SetResizeCallback(func(width, height int) {
			e.renderer.Resize(width, height)
			if height > 0 {
				e.camera.SetAspect(float32(width) / float32(height))
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) RenderSettings() config.RenderSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *engine) UpdateRenderSettings(edit func(s *config.RenderSettings)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	edit(&e.settings)
}

func (e *engine) Run() {
	if e.window == nil {
		panic("engine: Run requires a window")
	}
	e.running = true
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quit:
			_ = e.window.Close()
			return
		default:
		}
		if e.windowCallback != nil {
			e.windowCallback()
		}
	})
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.shutdown()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quit)
	})
}

// shutdown releases the scene's GPU resources and the device once both loops have exited.
func (e *engine) shutdown() {
	e.scene.Deinit()
	e.renderer.Release()
	e.log.Info("engine stopped", zap.Uint64("frames", e.frames))
	logger.Sync()
}

// handleEngine runs the fixed-rate tick loop. It listens for tick rate changes and exits when
// the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quit:
			return
		case now := <-ticker.C:
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

// handleRender renders frames until quit. A panic inside a frame is logged and stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("render loop stopped by panic", zap.String("panic", fmt.Sprint(r)), zap.Uint64("frame", e.frames))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.quit:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		e.renderFrame(dt)

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame records, submits and presents one frame of the scene, then folds the latest
// read-back stats into the profiler.
//
// Parameters:
//   - dt: time since the previous frame in seconds
func (e *engine) renderFrame(dt float32) {
	settings := e.RenderSettings()

	e.camera.Update()
	desc := scene.RenderDescriptor{
		ViewProj:       e.camera.ViewProjectionMatrix(),
		CameraPosition: e.camera.Position(),
	}

	e.scene.Render(desc, &settings)
	e.renderer.Present()

	if settings.ReadbackStats {
		e.submitted[e.frames] = frameRecord{desc: desc, flags: settings.VisibilityFlags()}
	}
	e.frames++
	e.consumeStats()

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
}

// consumeStats records a newly read-back frame in the profiler and, if enabled, checks it
// against the CPU cull. Records of frames at or before it are dropped.
func (e *engine) consumeStats() {
	stats := e.scene.Stats()
	if !stats.Valid || stats.Frame < e.nextStats {
		return
	}
	e.nextStats = stats.Frame + 1

	c := stats.Counts
	e.profiler.RecordDraw(c.OpaqueCulled+c.TransparentCulled,
		stats.VisibleMeshlets(scene.RenderPassOpaque), stats.VisibleMeshlets(scene.RenderPassTransparent))

	rec, ok := e.submitted[stats.Frame]
	for f := range e.submitted {
		if f <= stats.Frame {
			delete(e.submitted, f)
		}
	}
	if e.cullCheck && ok {
		e.checkCull(stats, rec)
	}
}

// checkCull compares the GPU instance counters of a frame with the CPU predicate.
func (e *engine) checkCull(stats scene.FrameStats, rec frameRecord) {
	store := e.scene.Store()
	want := scene.CullCPU(e.scene.Visibility(), store.GPUInstances(), store.GPUMeshes(), rec.desc, rec.flags)
	got := stats.Counts
	if cullCountsMatch(want, got) {
		e.log.Debug("gpu cull matches cpu", zap.Uint64("frame", stats.Frame),
			zap.Uint32("opaque_visible", got.OpaqueVisible), zap.Uint32("transparent_visible", got.TransparentVisible))
		return
	}
	e.log.Warn("gpu cull differs from cpu",
		zap.Uint64("frame", stats.Frame),
		zap.Uint32s("gpu", []uint32{got.OpaqueVisible, got.OpaqueCulled, got.TransparentVisible, got.TransparentCulled}),
		zap.Uint32s("cpu", []uint32{want.OpaqueVisible, want.OpaqueCulled, want.TransparentVisible, want.TransparentCulled}),
	)
}

func cullCountsMatch(a, b model.GPUDrawCounts) bool {
	return a.OpaqueVisible == b.OpaqueVisible && a.OpaqueCulled == b.OpaqueCulled &&
		a.TransparentVisible == b.TransparentVisible && a.TransparentCulled == b.TransparentCulled &&
		a.TotalCount == b.TotalCount
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the tick rate. If the engine is running, the change takes effect on the
// next tick.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update that the tick loop has not consumed yet.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetWindowCallback(callback func()) {
	e.windowCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
