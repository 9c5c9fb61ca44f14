// Package config holds the engine settings loaded once at startup.
package config

import (
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
)

// Visibility test names accepted by RenderSettings.Visibility.
const (
	VisibilityPassThrough = "passthrough"
	VisibilityFrustum     = "frustum"
)

// Settings is the root configuration.
type Settings struct {
	Window  WindowSettings  `yaml:"window"`
	Render  RenderSettings  `yaml:"render"`
	Meshlet MeshletSettings `yaml:"meshlet"`
	Logging LoggingSettings `yaml:"logging"`
	Demo    DemoSettings    `yaml:"demo"`
}

// WindowSettings holds the demo window parameters.
type WindowSettings struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	VSync  bool   `yaml:"vsync"`

	// MSAA is the sample count of the draw pass: 1 or 4.
	MSAA int `yaml:"msaa"`

	// SoftwareAdapter requests the CPU fallback adapter (lavapipe, SwiftShader).
	SoftwareAdapter bool `yaml:"software_adapter"`
}

// RenderSettings is read by every pipeline stage during a frame and never written by them.
type RenderSettings struct {
	// FramesInFlight is the number of per-frame buffer slots.
	FramesInFlight int `yaml:"frames_in_flight"`

	// Visibility selects the instance visibility test: "passthrough" or "frustum".
	Visibility string `yaml:"visibility"`

	// ConeCulling enables per-meshlet backface cone rejection.
	ConeCulling bool `yaml:"cone_culling"`

	// MeshletFrustumCulling enables per-meshlet sphere-frustum rejection.
	MeshletFrustumCulling bool `yaml:"meshlet_frustum_culling"`

	// NormalEncoding selects the normal/tangent quantization: "legacy" or "symmetric".
	NormalEncoding string `yaml:"normal_encoding"`

	// ReadbackStats copies the draw counts back to the CPU every frame.
	ReadbackStats bool `yaml:"readback_stats"`

	// ClearColor is the RGBA background color.
	ClearColor [4]float64 `yaml:"clear_color"`
}

// MeshletSettings configures the meshlet builder.
type MeshletSettings struct {
	// Workers is the maximum number of concurrent mesh builds.
	Workers int `yaml:"workers"`

	// CacheEntries is the in-memory build cache capacity; 0 disables the cache.
	CacheEntries int `yaml:"cache_entries"`

	// CacheDir persists builds across runs when set.
	CacheDir string `yaml:"cache_dir"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DemoSettings describes the procedural scene of the demo host.
type DemoSettings struct {
	// GridSize is the number of placements along each side of the instance grid.
	GridSize int `yaml:"grid_size"`

	// Spacing is the distance between neighbouring placements.
	Spacing float32 `yaml:"spacing"`

	// SphereSegments is the tessellation of the sphere meshes.
	SphereSegments int `yaml:"sphere_segments"`

	// TransparentEvery makes every n-th placement row transparent; 0 disables it.
	TransparentEvery int `yaml:"transparent_every"`

	// Orbit rotates the camera around the scene.
	Orbit bool `yaml:"orbit"`
}

// Default returns the settings used when no file overrides them.
func Default() *Settings {
	return &Settings{
		Window: WindowSettings{
			Title:  "oxy meshlet",
			Width:  1280,
			Height: 720,
			VSync:  true,
			MSAA:   4,
		},
		Render: RenderSettings{
			FramesInFlight:        2,
			Visibility:            VisibilityFrustum,
			ConeCulling:           true,
			MeshletFrustumCulling: true,
			NormalEncoding:        model.NormalEncodingLegacy.String(),
			ReadbackStats:         false,
			ClearColor:            [4]float64{0.05, 0.05, 0.08, 1},
		},
		Meshlet: MeshletSettings{
			Workers:      4,
			CacheEntries: 64,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
		Demo: DemoSettings{
			GridSize:         16,
			Spacing:          3,
			SphereSegments:   32,
			TransparentEvery: 4,
			Orbit:            true,
		},
	}
}

// Encoding returns the configured normal encoding.
func (r *RenderSettings) Encoding() model.NormalEncoding {
	if r.NormalEncoding == model.NormalEncodingSymmetric.String() {
		return model.NormalEncodingSymmetric
	}
	return model.NormalEncodingLegacy
}

// VisibilityFlags converts the culling toggles to the frame uniform bit set.
func (r *RenderSettings) VisibilityFlags() uint32 {
	var flags uint32
	if r.Visibility == VisibilityFrustum {
		flags |= model.VisibilityCulling
	}
	if r.ConeCulling {
		flags |= model.VisibilityConeCulling
	}
	if r.MeshletFrustumCulling {
		flags |= model.VisibilityMeshletFrustum
	}
	return flags
}
