package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/camera"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/scene"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption configures an engine before NewEngine fills in defaults.
type EngineBuilderOption func(*engine)

// WithProfiling logs a profiler sample with frame timing and cull results once per second.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets how often the tick callback runs. Rendering is not tied to it.
//
// Parameters:
//   - fps: ticks per second; values <= 0 mean 60
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window whose message loop Run drives. Its resize events reconfigure the
// surface and the camera aspect.
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer the scene was initialized with.
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithCamera sets the camera whose view-projection feeds every frame.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithScene sets the scene rendered each frame. The scene must already have its meshes added
// and its resources created.
//
// Parameters:
//   - s: the Scene to render
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithRenderSettings sets the initial render settings.
func WithRenderSettings(settings config.RenderSettings) EngineBuilderOption {
	return func(e *engine) {
		e.settings = settings
	}
}

// WithCullCheck compares every read-back GPU cull result with the CPU evaluation of the same
// visibility predicate and logs a warning on mismatch. Only frames rendered with
// ReadbackStats enabled are checked.
//
// Parameters:
//   - enabled: if true, enables the comparison
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCullCheck(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.cullCheck = enabled
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(log *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.log = log
	}
}

// WithRenderFrameLimit caps the render loop. Presentation mode still applies on top of it.
//
// Parameters:
//   - fps: the frame cap; values <= 0 leave the loop uncapped
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
