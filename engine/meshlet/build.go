package meshlet

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
)

// meshBuild is the mesh-relative output of building one mesh. Data offsets and vertex
// references start at zero and are rebased when the build is merged into a store.
type meshBuild struct {
	Meshlets   []model.GPUMeshlet         `msgpack:"meshlets"`
	Data       []uint32                   `msgpack:"data"`
	Positions  []float32                  `msgpack:"positions"`
	Attributes []model.GPUVertexAttribute `msgpack:"attributes"`
	IndexCount uint32                     `msgpack:"index_count"`
	Triangles  uint32                     `msgpack:"triangles"`
}

// checkMesh enforces the hard limits of the 16-bit index format. Violations are programming
// errors in the caller and panic.
func checkMesh(m *model.Mesh) {
	if len(m.Vertices) > model.MaxMeshVertices {
		panic(fmt.Sprintf("meshlet: mesh %q has %d vertices, more than the 16-bit index limit of %d", m.Name, len(m.Vertices), model.MaxMeshVertices))
	}
	if err := m.Validate(); err != nil {
		panic(fmt.Sprintf("meshlet: %v", err))
	}
}

// buildMesh clusters one mesh and produces its meshlet records, packed data, positions and
// quantized attributes. The meshlet list is padded with empty records to a multiple of
// model.MeshletGroupSize.
//
// Parameters:
//   - m: the mesh to build, already checked with checkMesh
//   - enc: the normal/tangent quantization
//
// Returns:
//   - *meshBuild: the mesh-relative build
func buildMesh(m *model.Mesh, enc model.NormalEncoding) *meshBuild {
	positions := make([][3]float32, len(m.Vertices))
	b := &meshBuild{
		Positions:  make([]float32, 0, len(m.Vertices)*3),
		Attributes: make([]model.GPUVertexAttribute, len(m.Vertices)),
	}
	for i := range m.Vertices {
		v := &m.Vertices[i]
		positions[i] = v.Position
		b.Positions = append(b.Positions, v.Position[0], v.Position[1], v.Position[2])
		b.Attributes[i] = packAttribute(v, enc)
	}

	clusters := buildClusters(m.Indices, len(m.Vertices))
	padded := common.AlignUp(uint32(len(clusters)), model.MeshletGroupSize)
	b.Meshlets = make([]model.GPUMeshlet, padded)
	for i := range clusters {
		cl := &clusters[i]
		b.Meshlets[i] = meshletRecord(positions, cl, uint32(len(b.Data)))
		b.Data = appendClusterData(b.Data, cl)
		b.Triangles += uint32(len(cl.triangles) / 3)
	}
	b.IndexCount = b.Triangles * 3
	return b
}
