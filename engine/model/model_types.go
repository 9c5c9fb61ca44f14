package model

import (
	"github.com/Carmen-Shannon/oxy-meshlet/common"
)

// Meshlet size limits. A meshlet references at most MaxMeshletVertices unique vertices
// and MaxMeshletTriangles triangles, so local indices always fit in one byte.
const (
	// MaxMeshletVertices is the vertex cap of a single meshlet.
	MaxMeshletVertices = 64

	// MaxMeshletTriangles is the triangle cap of a single meshlet.
	MaxMeshletTriangles = 124

	// MeshletGroupSize is the granularity of a mesh's meshlet run. Each mesh's meshlet
	// count is padded to a multiple of this value with empty meshlets, so one expand
	// workgroup always covers exactly MeshletGroupSize slots.
	MeshletGroupSize = 32

	// MaxMeshVertices is the largest vertex count addressable by 16-bit indices.
	MaxMeshVertices = 65535
)

// AlphaMode selects how a mesh part is composited.
type AlphaMode int

const (
	// AlphaModeOpaque renders the part in the opaque pass with depth writes.
	AlphaModeOpaque AlphaMode = iota

	// AlphaModeBlend renders the part in the transparent pass with alpha blending.
	AlphaModeBlend
)

// NormalEncoding selects how unit vectors (normals, tangents) are quantized to 8 bits.
type NormalEncoding uint32

const (
	// NormalEncodingLegacy packs a component as uint8((x + 1) * 127).
	// It is asymmetric (0 encodes to 127, 1 encodes to 254) and is the default so that
	// data stays bit-compatible with existing decoders.
	NormalEncodingLegacy NormalEncoding = iota

	// NormalEncodingSymmetric packs a component as round((x * 0.5 + 0.5) * 255).
	NormalEncodingSymmetric
)

// String returns the configuration name of the encoding.
func (e NormalEncoding) String() string {
	switch e {
	case NormalEncodingSymmetric:
		return "symmetric"
	default:
		return "legacy"
	}
}

// --- Geometry Types ---

// Vertex is a single mesh-local vertex as delivered by an importer or generator.
type Vertex struct {
	// Position is the vertex position in model space.
	Position [3]float32

	// Normal is the unit surface normal.
	Normal [3]float32

	// UV is the texture coordinate.
	UV [2]float32

	// Tangent is the unit tangent (xyz) with the bitangent handedness in w (+1 or -1).
	Tangent [4]float32

	// Bitangent is the unit bitangent. It is not uploaded; shaders rebuild it from
	// the normal, the tangent and the handedness.
	Bitangent [3]float32
}

// MeshPart is a material-indexed range of a mesh's index buffer.
type MeshPart struct {
	// MaterialIndex references the importer's material table.
	MaterialIndex int

	// IndexOffset is the first index of the part.
	IndexOffset uint32

	// IndexCount is the number of indices in the part.
	IndexCount uint32

	// AlphaMode selects the render pass the part belongs to.
	AlphaMode AlphaMode
}

// Mesh is a static geometry asset. It lives for the lifetime of the scene and is referenced,
// never owned, by every MeshInstance placed from it.
type Mesh struct {
	// Name is the mesh identifier used in logs and cache keys.
	Name string

	// Vertices holds the mesh-local vertex array.
	Vertices []Vertex

	// Indices is the triangle list. Every three indices form one triangle.
	Indices []uint16

	// Parts splits the index buffer into material ranges. A nil slice means one opaque part
	// covering every index.
	Parts []MeshPart

	// Bounds is the model-space bounding box of all vertices.
	Bounds common.BoundingBox

	// Transforms lists the scene-graph placements of this mesh as column-major model matrices.
	// One MeshInstance is created per entry. A nil slice places the mesh once at the origin.
	// Each upper 3x3 must be a rotation times a uniform scale: shaders transform normals and
	// cone axes by the model matrix itself, and Validate rejects anything else.
	Transforms [][16]float32

	// MeshletOffset is the index of the mesh's first meshlet in the shared meshlet array.
	// Populated by the meshlet builder.
	MeshletOffset uint32

	// MeshletCount is the mesh's meshlet count, padded to a multiple of MeshletGroupSize.
	// Populated by the meshlet builder.
	MeshletCount uint32

	// VertexOffset is the index of the mesh's first vertex in the shared vertex arrays.
	// Populated by the meshlet builder.
	VertexOffset uint32

	// IndexCount is the number of indices emitted for the mesh's meshlets. Populated by the
	// meshlet builder.
	IndexCount uint32
}

// MeshInstance is one placement of a Mesh in the scene.
type MeshInstance struct {
	// Mesh is the non-owning reference to the placed mesh. It outlives the instance.
	Mesh *Mesh

	// MeshIndex is the index of Mesh in the scene's mesh array.
	MeshIndex uint32

	// NodeIndex is the scene-graph node that produced the placement.
	NodeIndex uint32

	// InstanceIndex is the slot of this instance in the GPU instance array.
	InstanceIndex uint32

	// Transform is the column-major model matrix.
	Transform [16]float32
}
