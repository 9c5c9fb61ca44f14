package model

import (
	"github.com/chewxy/math32"
)

// NewGridMesh creates a flat square grid on the XZ plane centered on the origin.
// The grid has (cells+1)² vertices and 2·cells² triangles facing +Y.
//
// Parameters:
//   - name: the mesh identifier
//   - cells: the number of cells along each side (must be ≥ 1)
//   - size: the edge length of the whole grid
//   - options: variadic list of MeshBuilderOption functions applied to the result
//
// Returns:
//   - *Mesh: the grid mesh
func NewGridMesh(name string, cells int, size float32, options ...MeshBuilderOption) *Mesh {
	if cells < 1 {
		cells = 1
	}
	stride := cells + 1
	vertices := make([]Vertex, 0, stride*stride)
	for z := 0; z <= cells; z++ {
		for x := 0; x <= cells; x++ {
			u := float32(x) / float32(cells)
			v := float32(z) / float32(cells)
			vertices = append(vertices, Vertex{
				Position:  [3]float32{(u - 0.5) * size, 0, (v - 0.5) * size},
				Normal:    [3]float32{0, 1, 0},
				UV:        [2]float32{u, v},
				Tangent:   [4]float32{1, 0, 0, 1},
				Bitangent: [3]float32{0, 0, 1},
			})
		}
	}
	indices := make([]uint16, 0, cells*cells*6)
	for z := 0; z < cells; z++ {
		for x := 0; x < cells; x++ {
			i0 := uint16(z*stride + x)
			i1 := i0 + 1
			i2 := i0 + uint16(stride)
			i3 := i2 + 1
			indices = append(indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return NewMesh(name, vertices, indices, options...)
}

// NewSphereMesh creates a UV sphere centered on the origin with single-vertex poles.
// The sphere has segments·(rings-1)+2 vertices and 2·segments·(rings-1) triangles.
//
// Parameters:
//   - name: the mesh identifier
//   - segments: the number of longitudinal slices (must be ≥ 3)
//   - rings: the number of latitudinal bands (must be ≥ 2)
//   - radius: the sphere radius
//   - options: variadic list of MeshBuilderOption functions applied to the result
//
// Returns:
//   - *Mesh: the sphere mesh
func NewSphereMesh(name string, segments, rings int, radius float32, options ...MeshBuilderOption) *Mesh {
	segments = max(segments, 3)
	rings = max(rings, 2)

	vertex := func(theta, phi float32) Vertex {
		st, ct := math32.Sincos(theta)
		sp, cp := math32.Sincos(phi)
		n := [3]float32{st * cp, ct, st * sp}
		return Vertex{
			Position:  [3]float32{n[0] * radius, n[1] * radius, n[2] * radius},
			Normal:    n,
			UV:        [2]float32{phi / (2 * math32.Pi), theta / math32.Pi},
			Tangent:   [4]float32{-sp, 0, cp, 1},
			Bitangent: [3]float32{ct * cp, -st, ct * sp},
		}
	}

	vertices := make([]Vertex, 0, segments*(rings-1)+2)
	vertices = append(vertices, vertex(0, 0))
	for r := 1; r < rings; r++ {
		theta := math32.Pi * float32(r) / float32(rings)
		for s := 0; s < segments; s++ {
			vertices = append(vertices, vertex(theta, 2*math32.Pi*float32(s)/float32(segments)))
		}
	}
	vertices = append(vertices, vertex(math32.Pi, 0))
	south := uint16(len(vertices) - 1)

	ring := func(r, s int) uint16 {
		return uint16(1 + (r-1)*segments + s%segments)
	}
	indices := make([]uint16, 0, 6*segments*(rings-1))
	for s := 0; s < segments; s++ {
		indices = append(indices, 0, ring(1, s+1), ring(1, s))
	}
	for r := 1; r < rings-1; r++ {
		for s := 0; s < segments; s++ {
			a, b := ring(r, s), ring(r, s+1)
			c, d := ring(r+1, s), ring(r+1, s+1)
			indices = append(indices, a, b, c, b, d, c)
		}
	}
	for s := 0; s < segments; s++ {
		indices = append(indices, south, ring(rings-1, s), ring(rings-1, s+1))
	}
	return NewMesh(name, vertices, indices, options...)
}

// NewFanMesh creates a triangle fan on the XZ plane around center: one hub vertex and
// rim vertices on a circle. A closed fan connects the last rim vertex back to the first.
//
// Parameters:
//   - name: the mesh identifier
//   - center: the hub position
//   - rim: the number of rim vertices (must be ≥ 2)
//   - radius: the rim circle radius
//   - closed: whether the fan wraps around to form a full disc
//
// Returns:
//   - *Mesh: the fan mesh with rim+1 vertices
func NewFanMesh(name string, center [3]float32, rim int, radius float32, closed bool) *Mesh {
	rim = max(rim, 2)
	vertices := make([]Vertex, 0, rim+1)
	vertices = append(vertices, Vertex{
		Position: center,
		Normal:   [3]float32{0, 1, 0},
		UV:       [2]float32{0.5, 0.5},
		Tangent:  [4]float32{1, 0, 0, 1},
	})
	for i := 0; i < rim; i++ {
		s, c := math32.Sincos(2 * math32.Pi * float32(i) / float32(rim))
		vertices = append(vertices, Vertex{
			Position: [3]float32{center[0] + c*radius, center[1], center[2] + s*radius},
			Normal:   [3]float32{0, 1, 0},
			UV:       [2]float32{0.5 + c*0.5, 0.5 + s*0.5},
			Tangent:  [4]float32{1, 0, 0, 1},
		})
	}
	triangles := rim - 1
	if closed {
		triangles = rim
	}
	indices := make([]uint16, 0, triangles*3)
	for i := 0; i < triangles; i++ {
		a := uint16(1 + i)
		b := uint16(1 + (i+1)%rim)
		indices = append(indices, 0, b, a)
	}
	return NewMesh(name, vertices, indices)
}

// NewBipyramidMesh creates a closed double pyramid: a ring of vertices on the XZ plane and
// one apex above and below it. It has ring+2 vertices and 2·ring triangles, every one of
// them sharing an edge with its neighbours.
//
// Parameters:
//   - name: the mesh identifier
//   - ring: the number of ring vertices (must be ≥ 3)
//   - radius: the ring radius and apex height
//
// Returns:
//   - *Mesh: the bipyramid mesh
func NewBipyramidMesh(name string, ring int, radius float32) *Mesh {
	ring = max(ring, 3)
	vertices := make([]Vertex, 0, ring+2)
	vertices = append(vertices, Vertex{Position: [3]float32{0, radius, 0}, Normal: [3]float32{0, 1, 0}, Tangent: [4]float32{1, 0, 0, 1}})
	for i := 0; i < ring; i++ {
		s, c := math32.Sincos(2 * math32.Pi * float32(i) / float32(ring))
		vertices = append(vertices, Vertex{
			Position: [3]float32{c * radius, 0, s * radius},
			Normal:   [3]float32{c, 0, s},
			UV:       [2]float32{float32(i) / float32(ring), 0.5},
			Tangent:  [4]float32{-s, 0, c, 1},
		})
	}
	vertices = append(vertices, Vertex{Position: [3]float32{0, -radius, 0}, Normal: [3]float32{0, -1, 0}, Tangent: [4]float32{1, 0, 0, 1}})
	bottom := uint16(ring + 1)

	indices := make([]uint16, 0, ring*6)
	for i := 0; i < ring; i++ {
		a := uint16(1 + i)
		b := uint16(1 + (i+1)%ring)
		indices = append(indices, 0, b, a, bottom, a, b)
	}
	return NewMesh(name, vertices, indices)
}
