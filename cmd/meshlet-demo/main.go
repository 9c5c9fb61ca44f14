// Command meshlet-demo renders a grid of procedural meshes through the GPU-driven meshlet
// pipeline. WASD or the arrow keys orbit, Q/E or the scroll wheel zoom, and a left-button
// drag rotates. C toggles cone culling, F meshlet frustum culling, R stats readback and
// Space pauses the automatic orbit.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/camera"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/logger"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/meshlet"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/scene"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/window"
	"go.uber.org/zap"
)

// orbitSpeed is the automatic orbit rate in radians per second.
const orbitSpeed = 0.15

// titleInterval is how often the title bar is refreshed.
const titleInterval = 500 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "Path to a YAML settings file")
	cullCheck := flag.Bool("cull-check", false, "Compare every GPU cull result with the CPU (enables stats readback)")
	profile := flag.Bool("profile", false, "Log frame statistics every second")
	writeConfig := flag.String("write-config", "", "Write the effective settings to this path and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.File)
	defer logger.Sync()

	if *cullCheck {
		cfg.Render.ReadbackStats = true
	}
	if err := run(cfg, *cullCheck, *profile); err != nil {
		logger.Error("demo failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("demo closed normally")
}

// run builds the demo scene and blocks until the window closes.
func run(cfg *config.Settings, cullCheck, profile bool) error {
	w := window.NewWindow(window.WithSettings(cfg.Window))

	mode := renderer.PresentModeVSync
	if !cfg.Window.VSync {
		mode = renderer.PresentModeUncapped
	}
	r := renderer.NewRenderer(renderer.BackendTypeWGPU, w,
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Window.MSAA)),
		renderer.WithForceSoftwareRenderer(cfg.Window.SoftwareAdapter),
	)

	storeOptions := []meshlet.StoreBuilderOption{
		meshlet.WithWorkers(cfg.Meshlet.Workers),
		meshlet.WithNormalEncoding(cfg.Render.Encoding()),
	}
	if cfg.Meshlet.CacheEntries > 0 {
		cache, err := meshlet.NewCache(cfg.Meshlet.CacheEntries, cfg.Meshlet.CacheDir)
		if err != nil {
			return err
		}
		storeOptions = append(storeOptions, meshlet.WithCache(cache))
	}
	store := meshlet.NewStore(storeOptions...)
	defer store.Close()

	s := scene.NewScene(
		scene.WithName("demo"),
		scene.WithStore(store),
		scene.WithVisibility(scene.VisibilityByName(cfg.Render.Visibility)),
		scene.WithFramesInFlight(cfg.Render.FramesInFlight),
	)
	s.Init(r)
	s.AddMeshes(buildDemoMeshes(cfg.Demo))
	s.CreateResources()
	instances := store.Stats().Instances

	extent := demoExtent(cfg.Demo)
	var autoOrbit float32
	if cfg.Demo.Orbit {
		autoOrbit = orbitSpeed
	}
	controller := camera.NewCameraController(
		camera.WithRadius(extent),
		camera.WithRadiusBounds(2, extent*4),
		camera.WithZoomSpeed(max(extent/50, 1)),
		camera.WithAutoOrbit(autoOrbit),
	)
	cam := camera.NewCamera(
		camera.WithController(controller),
		camera.WithDepthRange(0.1, extent*8),
	)

	eng := engine.NewEngine(
		engine.WithWindow(w),
		engine.WithRenderer(r),
		engine.WithCamera(cam),
		engine.WithScene(s),
		engine.WithRenderSettings(cfg.Render),
		engine.WithCullCheck(cullCheck),
		engine.WithProfiling(profile),
		engine.WithTickRate(60),
	)

	var paused atomic.Bool
	eng.SetTickCallback(func(dt float32) {
		if !paused.Load() {
			controller.Advance(dt)
		}
	})

	log := logger.Named("demo")
	w.SetScrollCallback(controller.Zoom)
	w.SetDragCallback(controller.Drag)
	w.SetKeyDownCallback(func(keyCode uint32) {
		if controller.HandleKey(keyCode) {
			return
		}
		switch keyCode {
		case common.KeyC:
			eng.UpdateRenderSettings(func(rs *config.RenderSettings) { rs.ConeCulling = !rs.ConeCulling })
		case common.KeyF:
			eng.UpdateRenderSettings(func(rs *config.RenderSettings) { rs.MeshletFrustumCulling = !rs.MeshletFrustumCulling })
		case common.KeyR:
			eng.UpdateRenderSettings(func(rs *config.RenderSettings) { rs.ReadbackStats = !rs.ReadbackStats })
		case common.KeySpace:
			paused.Store(!paused.Load())
		default:
			return
		}
		rs := eng.RenderSettings()
		log.Info("settings changed",
			zap.Bool("cone_culling", rs.ConeCulling),
			zap.Bool("meshlet_frustum_culling", rs.MeshletFrustumCulling),
			zap.Bool("readback_stats", rs.ReadbackStats),
			zap.Bool("orbit_paused", paused.Load()),
		)
	})

	var lastTitle time.Time
	eng.SetWindowCallback(func() {
		if time.Since(lastTitle) < titleInterval {
			return
		}
		lastTitle = time.Now()
		w.SetTitle(title(cfg.Window.Title, eng.RenderSettings(), s.Stats(), instances))
	})

	eng.Run()
	return nil
}
