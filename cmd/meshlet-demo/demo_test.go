package main

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDemoMeshes(t *testing.T) {
	d := config.Default().Demo
	d.GridSize = 4
	d.TransparentEvery = 2

	meshes := buildDemoMeshes(d)
	require.Len(t, meshes, 3)

	ground, opaque, glass := meshes[0], meshes[1], meshes[2]
	assert.Equal(t, "ground", ground.Name)
	assert.Len(t, ground.Placements(), 1)

	assert.False(t, opaque.Transparent())
	assert.Len(t, opaque.Placements(), 8)
	assert.True(t, glass.Transparent())
	assert.Len(t, glass.Placements(), 8)

	// Rows 1 and 3 (zero-based) are transparent.
	spacing := d.Spacing
	first := glass.Placements()[0]
	assert.InDelta(t, -1.5*spacing, first[12], 1e-5)
	assert.InDelta(t, sphereRadius, first[13], 1e-5)
	assert.InDelta(t, -0.5*spacing, first[14], 1e-5)

	for _, m := range meshes {
		assert.NoError(t, m.Validate(), m.Name)
	}
}

func TestBuildDemoMeshesWithoutTransparency(t *testing.T) {
	d := config.Default().Demo
	d.GridSize = 3
	d.TransparentEvery = 0

	meshes := buildDemoMeshes(d)
	require.Len(t, meshes, 2)
	assert.Len(t, meshes[1].Placements(), 9)
	for _, m := range meshes {
		assert.False(t, m.Transparent())
	}
}

func TestBuildDemoMeshesAllTransparent(t *testing.T) {
	d := config.Default().Demo
	d.GridSize = 2
	d.TransparentEvery = 1

	meshes := buildDemoMeshes(d)
	require.Len(t, meshes, 2)
	assert.Equal(t, model.AlphaModeBlend, meshes[1].Parts[0].AlphaMode)
}

func TestTitle(t *testing.T) {
	rs := config.Default().Render
	got := title("demo", rs, scene.FrameStats{}, 12)
	assert.Equal(t, "demo | 12 instances | frustum | cone on | meshlet frustum on", got)

	rs.ReadbackStats = true
	rs.ConeCulling = false
	stats := scene.FrameStats{
		Valid:  true,
		Counts: model.GPUDrawCounts{OpaqueVisible: 5, TransparentVisible: 2, TotalCount: 12},
	}
	stats.Args[scene.RenderPassOpaque].InstanceCount = 64
	stats.Args[scene.RenderPassTransparent].InstanceCount = 32
	got = title("demo", rs, stats, 12)
	assert.Equal(t, "demo | 12 instances | frustum | cone off | meshlet frustum on | visible 7/12 | meshlets 64 opaque 32 transparent", got)
}
