package meshlet

import (
	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/chewxy/math32"
)

// degenerateConeDot is the smallest allowed dot product between the cone axis and a member
// triangle normal. Wider spreads (about 84 degrees) cannot be culled and get a degenerate cone.
const degenerateConeDot = 0.1

// Cone is the backface culling cone of a meshlet in model space.
type Cone struct {
	// Axis is the unit average facing direction, zero for a degenerate cone.
	Axis [3]float32

	// Cutoff is the sine of the widest normal deviation from Axis, 1 for a degenerate cone.
	Cutoff float32
}

// Degenerate reports whether the cone can never reject its meshlet.
func (c Cone) Degenerate() bool {
	return c.Cutoff >= 1
}

// clusterSphere computes the bounding sphere of a cluster's member vertices.
func clusterSphere(positions [][3]float32, cl *cluster) common.BoundingSphere {
	points := make([][3]float32, len(cl.vertices))
	for i, v := range cl.vertices {
		points[i] = positions[v]
	}
	return common.SphereFromPoints(points)
}

// clusterCone computes the normal cone of a cluster from its face normals. Zero-area
// triangles do not contribute.
//
// Parameters:
//   - positions: the mesh vertex positions
//   - cl: the cluster to bound
//
// Returns:
//   - Cone: the cluster's cone, degenerate when the normals spread too far
func clusterCone(positions [][3]float32, cl *cluster) Cone {
	normals := make([][3]float32, 0, len(cl.triangles)/3)
	var sum [3]float32
	for t := 0; t+2 < len(cl.triangles); t += 3 {
		a := positions[cl.vertices[cl.triangles[t]]]
		b := positions[cl.vertices[cl.triangles[t+1]]]
		c := positions[cl.vertices[cl.triangles[t+2]]]
		n := common.Cross3(common.Sub3(b, a), common.Sub3(c, a))
		if common.Length3(n) == 0 {
			continue
		}
		n = common.Normalize3(n)
		normals = append(normals, n)
		sum = common.Add3(sum, n)
	}

	degenerate := Cone{Cutoff: 1}
	if len(normals) == 0 || common.Length3(sum) == 0 {
		return degenerate
	}
	axis := common.Normalize3(sum)

	minDot := float32(1)
	for _, n := range normals {
		minDot = math32.Min(minDot, common.Dot3(axis, n))
	}
	if minDot <= degenerateConeDot {
		return degenerate
	}
	return Cone{Axis: axis, Cutoff: math32.Sqrt(1 - minDot*minDot)}
}

// quantizeSnorm8 maps v in [-1, 1] to the nearest signed 8-bit step of 1/127.
func quantizeSnorm8(v float32) int8 {
	q := math32.Round(math32.Max(-1, math32.Min(1, v)) * 127)
	return int8(q)
}

// QuantizeCone packs a cone into signed 8-bit values. The axis is rounded to nearest. The
// cutoff is widened by the distance between the exact axis and the normalized quantized axis,
// then rounded up one extra step, so the quantized cone never rejects a meshlet the exact cone
// keeps.
//
// Parameters:
//   - c: the cone to quantize
//
// Returns:
//   - [3]int8: the quantized axis
//   - int8: the quantized cutoff
func QuantizeCone(c Cone) ([3]int8, int8) {
	if c.Degenerate() {
		return [3]int8{}, 127
	}
	axis := [3]int8{quantizeSnorm8(c.Axis[0]), quantizeSnorm8(c.Axis[1]), quantizeSnorm8(c.Axis[2])}

	// For a unit view direction v, |dot(v, q) - dot(v, a)| <= |q - a|.
	axisErr := common.Length3(common.Sub3(DequantizeCone(axis, 0).Axis, c.Axis))
	cutoff := math32.Min(127, math32.Ceil((c.Cutoff+axisErr)*127)+1)
	return axis, int8(cutoff)
}

// DequantizeCone reverses QuantizeCone up to quantization error. The axis is renormalized
// the same way the expand shader does before testing.
func DequantizeCone(axis [3]int8, cutoff int8) Cone {
	return Cone{
		Axis:   common.Normalize3([3]float32{float32(axis[0]) / 127, float32(axis[1]) / 127, float32(axis[2]) / 127}),
		Cutoff: float32(cutoff) / 127,
	}
}

// ConeRejects reports whether a meshlet faces entirely away from the camera. The test is
// evaluated against the sphere center so it stays valid for any point of the meshlet.
//
// Parameters:
//   - sphere: the meshlet bounding sphere in the same space as camera
//   - c: the meshlet cone
//   - camera: the camera position
//
// Returns:
//   - bool: true if no triangle of the meshlet can be front-facing
func ConeRejects(sphere common.BoundingSphere, c Cone, camera [3]float32) bool {
	if c.Degenerate() {
		return false
	}
	d := common.Sub3(sphere.Center, camera)
	return common.Dot3(d, c.Axis) >= c.Cutoff*common.Length3(d)+sphere.Radius
}

// meshletRecord assembles the GPU record of a cluster. DataOffset and MeshIndex are relative
// to the mesh and are rebased when the build is merged into the store.
func meshletRecord(positions [][3]float32, cl *cluster, dataOffset uint32) model.GPUMeshlet {
	sphere := clusterSphere(positions, cl)
	axis, cutoff := QuantizeCone(clusterCone(positions, cl))
	return model.GPUMeshlet{
		Center:        sphere.Center,
		Radius:        sphere.Radius,
		ConeAxis:      axis,
		ConeCutoff:    cutoff,
		DataOffset:    dataOffset,
		VertexCount:   uint8(len(cl.vertices)),
		TriangleCount: uint8(len(cl.triangles) / 3),
	}
}
