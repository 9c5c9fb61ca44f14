package meshlet

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, options ...StoreBuilderOption) Store {
	t.Helper()
	s := NewStore(append([]StoreBuilderOption{WithIdleTimeout(100 * time.Millisecond)}, options...)...)
	t.Cleanup(s.Close)
	return s
}

func singleTriangle() *model.Mesh {
	return model.NewMesh("triangle", []model.Vertex{
		{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}},
	}, []uint16{0, 1, 2})
}

func sceneMeshes() []*model.Mesh {
	var shifted [16]float32
	shifted[0], shifted[5], shifted[10], shifted[15] = 1, 1, 1, 1
	shifted[12] = 5
	var identity [16]float32
	identity[0], identity[5], identity[10], identity[15] = 1, 1, 1, 1

	return []*model.Mesh{
		model.NewSphereMesh("sphere", 32, 16, 1, model.WithTransforms(identity, shifted)),
		model.NewGridMesh("grid", 12, 4, model.WithAlphaMode(model.AlphaModeBlend)),
		singleTriangle(),
		twoFans(),
	}
}

// assertStoreInvariants checks the properties every populated store must hold.
func assertStoreInvariants(t *testing.T, s Store) {
	t.Helper()
	data := s.MeshletData()
	vertexCount := uint32(len(s.Positions()) / 3)
	require.Len(t, s.Attributes(), int(vertexCount))

	for mi, m := range s.Meshes() {
		// Padded to the group size; padding records are fully zero.
		assert.Zero(t, m.MeshletCount%model.MeshletGroupSize, "mesh %q meshlet count", m.Name)
		var triangles, emitted uint32
		for i := m.MeshletOffset; i < m.MeshletOffset+m.MeshletCount; i++ {
			ml := s.Meshlets()[i]
			if ml.IsEmpty() {
				assert.Equal(t, model.GPUMeshlet{}, ml)
				continue
			}
			// Size caps.
			assert.LessOrEqual(t, int(ml.VertexCount), model.MaxMeshletVertices)
			assert.LessOrEqual(t, int(ml.TriangleCount), model.MaxMeshletTriangles)
			assert.Equal(t, uint32(mi), ml.MeshIndex)

			// The packed run is ceil(3t/4) words and fits inside the data array.
			end := ml.DataOffset + uint32(ml.VertexCount) + ml.PackedWords()
			assert.LessOrEqual(t, end, uint32(len(data)))
			assert.Equal(t, uint32(model.MaxMeshletTriangles*3+3)/4, uint32(PackedTriangleWords(model.MaxMeshletTriangles)))

			for _, ref := range data[ml.DataOffset : ml.DataOffset+uint32(ml.VertexCount)] {
				assert.GreaterOrEqual(t, ref, m.VertexOffset)
				assert.Less(t, ref, m.VertexOffset+uint32(len(m.Vertices)))
			}
			for _, local := range UnpackTriangles(data, &ml) {
				assert.Less(t, local, ml.VertexCount)
			}
			triangles += uint32(ml.TriangleCount)
			emitted++
		}
		assert.Equal(t, uint32(m.TriangleCount()), triangles, "mesh %q triangles", m.Name)
		assert.Equal(t, m.IndexCount, triangles*3)
		assert.Equal(t, m.MeshletCount, s.GPUMeshes()[mi].MeshletCount)
		if emitted > 0 {
			assert.Equal(t, common.AlignUp(emitted, model.MeshletGroupSize), m.MeshletCount)
		}
	}

	// Every instance resolves to its mesh.
	for _, inst := range s.Instances() {
		require.NotNil(t, inst.Mesh)
		if inst.Mesh.TriangleCount() > 0 {
			assert.Positive(t, inst.Mesh.MeshletCount)
		}
		assert.Same(t, s.Meshes()[inst.MeshIndex], inst.Mesh)
	}
	assert.Len(t, s.GPUInstances(), len(s.Instances()))
}

func TestAddMeshesSingleTriangle(t *testing.T) {
	s := newTestStore(t)
	s.AddMeshes([]*model.Mesh{singleTriangle()})

	require.Len(t, s.Meshlets(), 32)
	first := s.Meshlets()[0]
	assert.Equal(t, uint8(3), first.VertexCount)
	assert.Equal(t, uint8(1), first.TriangleCount)
	for _, ml := range s.Meshlets()[1:] {
		assert.True(t, ml.IsEmpty())
	}
	assert.Equal(t, []uint32{0, 1, 2, 0x00020100}, s.MeshletData())
	assert.Len(t, s.Instances(), 1)
	assertStoreInvariants(t, s)
}

func TestAddMeshesFullMeshlet(t *testing.T) {
	s := newTestStore(t)
	s.AddMeshes([]*model.Mesh{model.NewBipyramidMesh("b", 62, 1)})

	require.Len(t, s.Meshlets(), 32)
	ml := s.Meshlets()[0]
	assert.Equal(t, uint8(64), ml.VertexCount)
	assert.Equal(t, uint8(124), ml.TriangleCount)
	assert.Equal(t, uint32(93), ml.PackedWords())
	assert.Len(t, s.MeshletData(), 64+93)
	assert.Equal(t, 31, s.Stats().PaddingMeshlets)
	assertStoreInvariants(t, s)
}

func TestAddMeshesDisjointFans(t *testing.T) {
	s := newTestStore(t)
	s.AddMeshes([]*model.Mesh{twoFans()})

	var vertices, triangles, nonEmpty int
	for _, ml := range s.Meshlets() {
		if ml.IsEmpty() {
			continue
		}
		nonEmpty++
		vertices += int(ml.VertexCount)
		triangles += int(ml.TriangleCount)
	}
	assert.GreaterOrEqual(t, nonEmpty, 2)
	assert.Equal(t, 65, vertices)
	assert.Equal(t, 62, triangles)
	assertStoreInvariants(t, s)
}

func TestAddMeshesEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.NotPanics(t, func() { s.AddMeshes(nil) })
	assert.NotPanics(t, func() { s.AddMeshes([]*model.Mesh{}) })
	assert.True(t, s.Empty())
	assert.Empty(t, s.Meshlets())
	assert.Empty(t, s.Instances())

	// the store is still empty, so a real build is allowed afterwards
	assert.NotPanics(t, func() { s.AddMeshes([]*model.Mesh{singleTriangle()}) })
}

func TestAddMeshesTwicePanics(t *testing.T) {
	s := newTestStore(t)
	s.AddMeshes([]*model.Mesh{singleTriangle()})
	assert.Panics(t, func() { s.AddMeshes([]*model.Mesh{singleTriangle()}) })

	s.Reset()
	assert.True(t, s.Empty())
	assert.NotPanics(t, func() { s.AddMeshes([]*model.Mesh{singleTriangle()}) })
	assert.Len(t, s.Meshlets(), 32)
}

func TestAddMeshesVertexLimit(t *testing.T) {
	vertices := make([]model.Vertex, model.MaxMeshVertices+1)
	m := model.NewMesh("huge", vertices, []uint16{0, 1, 2})

	s := newTestStore(t)
	assert.PanicsWithValue(t,
		`meshlet: mesh "huge" has 65536 vertices, more than the 16-bit index limit of 65535`,
		func() { s.AddMeshes([]*model.Mesh{m}) })
	assert.True(t, s.Empty())
}

func TestAddMeshesMalformed(t *testing.T) {
	m := model.NewMesh("bad", make([]model.Vertex, 3), []uint16{0, 1, 7})
	s := newTestStore(t)
	assert.Panics(t, func() { s.AddMeshes([]*model.Mesh{m}) })

	stretched := model.NewGridMesh("stretched", 1, 1, model.WithTransforms([16]float32{
		2, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}))
	assert.PanicsWithValue(t, `meshlet: mesh "stretched": transform 0 has non-uniform scale or shear`,
		func() { s.AddMeshes([]*model.Mesh{stretched}) })
	assert.True(t, s.Empty())
}

func TestAddMeshesScene(t *testing.T) {
	s := newTestStore(t, WithWorkers(3))
	meshes := sceneMeshes()
	s.AddMeshes(meshes)
	assertStoreInvariants(t, s)

	st := s.Stats()
	assert.Equal(t, 4, st.Meshes)
	assert.Equal(t, 5, st.Instances)
	assert.Equal(t, len(s.Meshlets()), st.Meshlets)

	// meshes are laid out back to back in input order
	var next, vertex uint32
	for _, m := range meshes {
		assert.Equal(t, next, m.MeshletOffset)
		assert.Equal(t, vertex, m.VertexOffset)
		next += m.MeshletCount
		vertex += uint32(len(m.Vertices))
	}

	// placements of the sphere keep their transforms; the grid is transparent
	assert.Equal(t, float32(5), s.GPUInstances()[1].Model[12])
	assert.Equal(t, uint32(0), s.GPUInstances()[1].MeshIndex)
	assert.Equal(t, model.FlagTransparent, s.GPUInstances()[2].Flags)
	assert.Equal(t, model.FlagTransparent, s.GPUMeshes()[1].Flags)
	assert.Zero(t, s.GPUInstances()[0].Flags)

	var capacity uint32
	for _, inst := range s.Instances() {
		capacity += inst.Mesh.MeshletCount
	}
	assert.Equal(t, capacity, s.VisibleCapacity())
}

func TestAddMeshesDeterministic(t *testing.T) {
	a := newTestStore(t, WithWorkers(1))
	b := newTestStore(t, WithWorkers(8))
	a.AddMeshes(sceneMeshes())
	b.AddMeshes(sceneMeshes())

	assert.Equal(t, a.Meshlets(), b.Meshlets())
	assert.Equal(t, a.MeshletData(), b.MeshletData())
	assert.Equal(t, a.Positions(), b.Positions())
	assert.Equal(t, a.Attributes(), b.Attributes())
	assert.Equal(t, a.GPUMeshes(), b.GPUMeshes())
	assert.Equal(t, a.GPUInstances(), b.GPUInstances())
}

func TestResetClearsMeshOffsets(t *testing.T) {
	s := newTestStore(t)
	meshes := sceneMeshes()
	s.AddMeshes(meshes)
	s.Reset()

	for _, m := range meshes {
		assert.Zero(t, m.MeshletCount)
		assert.Zero(t, m.MeshletOffset)
	}
	assert.Equal(t, Stats{}, s.Stats())
}

func TestNormalEncodingOption(t *testing.T) {
	s := newTestStore(t, WithNormalEncoding(model.NormalEncodingSymmetric))
	s.AddMeshes([]*model.Mesh{singleTriangle()})
	assert.Equal(t, model.NormalEncodingSymmetric, s.NormalEncoding())
	assert.Equal(t, [4]uint8{128, 128, 255, 128}, s.Attributes()[0].Normal)
}
