// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/chewxy/math32"
)

// BoundingBox is an axis-aligned bounding box in model space.
type BoundingBox struct {
	Min [3]float32
	Max [3]float32
}

// EmptyBoundingBox returns an inverted box that any Extend call will overwrite.
//
// Returns:
//   - BoundingBox: a box with Min at +MaxFloat32 and Max at -MaxFloat32
func EmptyBoundingBox() BoundingBox {
	return BoundingBox{
		Min: [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// Extend grows the box to contain p.
//
// Parameters:
//   - p: the point to include
func (b *BoundingBox) Extend(p [3]float32) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() [3]float32 {
	return Scale3(Add3(b.Min, b.Max), 0.5)
}

// BoundingSphere is a sphere enclosing a set of points.
type BoundingSphere struct {
	Center [3]float32
	Radius float32
}

// SphereFromPoints builds a sphere centered at the midpoint of the points' bounding box,
// with the radius set to the farthest point's distance from that center.
//
// Parameters:
//   - points: the points to enclose
//
// Returns:
//   - BoundingSphere: the enclosing sphere, or the zero sphere if points is empty
func SphereFromPoints(points [][3]float32) BoundingSphere {
	if len(points) == 0 {
		return BoundingSphere{}
	}
	box := EmptyBoundingBox()
	for _, p := range points {
		box.Extend(p)
	}
	center := box.Center()
	var maxSq float32
	for _, p := range points {
		d := Sub3(p, center)
		maxSq = math32.Max(maxSq, Dot3(d, d))
	}
	return BoundingSphere{Center: center, Radius: math32.Sqrt(maxSq)}
}
