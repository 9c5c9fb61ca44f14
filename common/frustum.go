package common

import (
	"github.com/chewxy/math32"
)

// Frustum is the six clip planes of a view-projection, each stored as (normal.xyz, d) with a
// unit normal pointing inward. Plane order is left, right, bottom, top, near, far, which is
// also the order the cull shaders read them in.
type Frustum struct {
	Planes [6][4]float32
}

// ExtractFrustumFromMatrix derives world-space frustum planes from a column-major
// projection * view matrix by adding or subtracting its rows (Gribb/Hartmann). The near plane
// is the third row alone because WebGPU clip depth runs from 0 to w.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the 16 matrix values
//
// Returns:
//   - Frustum: the normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var rows [4][4]float32
	for r := range rows {
		rows[r] = [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	w := rows[3]

	var f Frustum
	for axis := range 2 {
		for side, sign := range [2]float32{1, -1} {
			f.Planes[axis*2+side] = combineRows(w, rows[axis], sign)
		}
	}
	f.Planes[4] = rows[2]
	f.Planes[5] = combineRows(w, rows[2], -1)

	for i := range f.Planes {
		f.Planes[i] = normalizePlane(f.Planes[i])
	}
	return f
}

func combineRows(a, b [4]float32, sign float32) [4]float32 {
	return [4]float32{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2], a[3] + sign*b[3]}
}

// normalizePlane scales a plane so its normal has unit length. Degenerate planes are returned
// unchanged.
func normalizePlane(p [4]float32) [4]float32 {
	l := math32.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
	if l == 0 {
		return p
	}
	return [4]float32{p[0] / l, p[1] / l, p[2] / l, p[3] / l}
}

// SphereVisible reports whether a sphere reaches the inside of every plane.
//
// Parameters:
//   - center: the world-space sphere center
//   - radius: the world-space sphere radius
//
// Returns:
//   - bool: false if the sphere lies entirely outside any plane
func (f *Frustum) SphereVisible(center [3]float32, radius float32) bool {
	for _, p := range f.Planes {
		if p[0]*center[0]+p[1]*center[1]+p[2]*center[2]+p[3] < -radius {
			return false
		}
	}
	return true
}

// GPUPlanes returns the planes in the layout of the frame uniforms.
func (f *Frustum) GPUPlanes() [6][4]float32 {
	return f.Planes
}
