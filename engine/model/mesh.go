package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
)

// NewMesh creates a Mesh from a vertex array and a 16-bit triangle list, computing its
// model-space bounding box. Options can attach material parts and scene placements.
//
// Parameters:
//   - name: the mesh identifier
//   - vertices: the mesh-local vertex array
//   - indices: the triangle list (length must be a multiple of 3)
//   - options: variadic list of MeshBuilderOption functions to configure the Mesh
//
// Returns:
//   - *Mesh: the new mesh
func NewMesh(name string, vertices []Vertex, indices []uint16, options ...MeshBuilderOption) *Mesh {
	m := &Mesh{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
	for _, opt := range options {
		opt(m)
	}
	m.RecomputeBounds()
	return m
}

// RecomputeBounds recalculates Bounds from the current vertex positions.
// An empty mesh gets a zero-sized box at the origin.
func (m *Mesh) RecomputeBounds() {
	if len(m.Vertices) == 0 {
		m.Bounds = common.BoundingBox{}
		return
	}
	box := common.EmptyBoundingBox()
	for i := range m.Vertices {
		box.Extend(m.Vertices[i].Position)
	}
	m.Bounds = box
}

// TriangleCount returns the number of triangles in the index buffer.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Transparent reports whether any part of the mesh uses alpha blending.
// Transparent meshes are routed to the transparent render pass as a whole.
func (m *Mesh) Transparent() bool {
	for _, p := range m.Parts {
		if p.AlphaMode == AlphaModeBlend {
			return true
		}
	}
	return false
}

// Placements returns the mesh's scene transforms, defaulting to one identity placement.
//
// Returns:
//   - [][16]float32: the column-major model matrices, never empty
func (m *Mesh) Placements() [][16]float32 {
	if len(m.Transforms) > 0 {
		return m.Transforms
	}
	var identity [16]float32
	common.Identity(identity[:])
	return [][16]float32{identity}
}

// BoundingSphere returns the sphere centered on the bounding box with a radius reaching
// the farthest vertex.
func (m *Mesh) BoundingSphere() common.BoundingSphere {
	points := make([][3]float32, len(m.Vertices))
	for i := range m.Vertices {
		points[i] = m.Vertices[i].Position
	}
	return common.SphereFromPoints(points)
}

// Validate checks the index buffer against the vertex array.
//
// Returns:
//   - error: an error describing the first malformed element, or nil
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh %q: index count %d is not a multiple of 3", m.Name, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("mesh %q: index %d at position %d is out of range (%d vertices)", m.Name, idx, i, len(m.Vertices))
		}
	}
	for i, p := range m.Parts {
		if uint64(p.IndexOffset)+uint64(p.IndexCount) > uint64(len(m.Indices)) {
			return fmt.Errorf("mesh %q: part %d exceeds the index buffer", m.Name, i)
		}
	}
	for i, tr := range m.Transforms {
		if !conformal(tr) {
			return fmt.Errorf("mesh %q: transform %d has non-uniform scale or shear", m.Name, i)
		}
	}
	return nil
}

// conformal reports whether the upper 3x3 of a column-major matrix is a rotation times a
// uniform scale, i.e. its columns are orthogonal and of equal length. Only such placements
// keep normals and meshlet cones valid under the model matrix.
func conformal(tr [16]float32) bool {
	cols := [3][3]float32{
		{tr[0], tr[1], tr[2]},
		{tr[4], tr[5], tr[6]},
		{tr[8], tr[9], tr[10]},
	}
	scale := common.Dot3(cols[0], cols[0])
	tol := 1e-4 * scale
	for i := range 3 {
		for j := i; j < 3; j++ {
			want := float32(0)
			if i == j {
				want = scale
			}
			d := common.Dot3(cols[i], cols[j]) - want
			if d > tol || d < -tol {
				return false
			}
		}
	}
	return true
}
