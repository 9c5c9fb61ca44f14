package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/scene"
)

// maxGroundCells keeps the ground grid within 16-bit indices.
const maxGroundCells = 200

// sphereRadius is the radius of every demo sphere.
const sphereRadius float32 = 1

// demoExtent returns the edge length of the square the demo grid covers.
func demoExtent(d config.DemoSettings) float32 {
	return float32(d.GridSize) * d.Spacing
}

// buildDemoMeshes lays out a GridSize x GridSize grid of spheres above a ground plane. Every
// TransparentEvery-th row uses an alpha-blended sphere mesh.
//
// Parameters:
//   - d: the demo settings
//
// Returns:
//   - []*model.Mesh: the ground, the opaque spheres and, when any row is transparent, the
//     transparent spheres
func buildDemoMeshes(d config.DemoSettings) []*model.Mesh {
	n := max(d.GridSize, 1)
	extent := demoExtent(d)
	offset := (float32(n) - 1) * d.Spacing / 2

	var opaque, transparent [][16]float32
	for z := range n {
		row := &opaque
		if d.TransparentEvery > 0 && (z+1)%d.TransparentEvery == 0 {
			row = &transparent
		}
		for x := range n {
			*row = append(*row, translation(float32(x)*d.Spacing-offset, sphereRadius, float32(z)*d.Spacing-offset))
		}
	}

	segments := max(d.SphereSegments, 3)
	rings := max(segments/2, 2)
	meshes := []*model.Mesh{
		model.NewGridMesh("ground", min(n*2, maxGroundCells), extent+d.Spacing),
	}
	if len(opaque) > 0 {
		meshes = append(meshes, model.NewSphereMesh("sphere", segments, rings, sphereRadius,
			model.WithTransforms(opaque...)))
	}
	if len(transparent) > 0 {
		meshes = append(meshes, model.NewSphereMesh("glass-sphere", segments, rings, sphereRadius,
			model.WithAlphaMode(model.AlphaModeBlend), model.WithTransforms(transparent...)))
	}
	return meshes
}

// translation returns a column-major translation matrix.
func translation(x, y, z float32) [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// onOff renders a toggle for the title bar.
func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// title summarizes the render settings and the latest read-back stats.
func title(base string, s config.RenderSettings, stats scene.FrameStats, instances int) string {
	t := fmt.Sprintf("%s | %d instances | %s | cone %s | meshlet frustum %s",
		base, instances, s.Visibility, onOff(s.ConeCulling), onOff(s.MeshletFrustumCulling))
	if s.ReadbackStats && stats.Valid {
		c := stats.Counts
		t += fmt.Sprintf(" | visible %d/%d | meshlets %d opaque %d transparent",
			c.OpaqueVisible+c.TransparentVisible, c.TotalCount,
			stats.VisibleMeshlets(scene.RenderPassOpaque), stats.VisibleMeshlets(scene.RenderPassTransparent))
	}
	return t
}
