package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUTypeSizes(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"GPUMeshlet", (&GPUMeshlet{}).Size(), 32},
		{"GPUMesh", (&GPUMesh{}).Size(), 64},
		{"GPUMeshInstance", (&GPUMeshInstance{}).Size(), 80},
		{"GPUDrawCommand", (&GPUDrawCommand{}).Size(), 16},
		{"GPUDrawCounts", (&GPUDrawCounts{}).Size(), 48},
		{"GPUDrawArgs", (&GPUDrawArgs{}).Size(), 16},
		{"GPUVisibleMeshlet", (&GPUVisibleMeshlet{}).Size(), 8},
		{"GPUFrameUniforms", (&GPUFrameUniforms{}).Size(), 192},
		{"GPUVertexAttribute", (&GPUVertexAttribute{}).Size(), 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.size, tt.name)
	}
}

func TestWGSLSourcesEmbedded(t *testing.T) {
	sources := map[string]string{
		"Meshlet":         GPUMeshletSource,
		"Mesh":            GPUMeshSource,
		"MeshInstance":    GPUMeshInstanceSource,
		"DrawCommand":     GPUDrawCommandSource,
		"DrawCounts":      GPUDrawCountsSource,
		"DrawCountsView":  GPUDrawCountsViewSource,
		"DrawArgs":        GPUDrawArgsSource,
		"VisibleMeshlet":  GPUVisibleMeshletSource,
		"FrameUniforms":   GPUFrameUniformsSource,
		"VertexAttribute": GPUVertexAttributeSource,
	}
	for name, src := range sources {
		assert.Contains(t, src, "struct "+name+" {", name)
	}
}

func TestMeshletMarshal(t *testing.T) {
	m := GPUMeshlet{
		Center:        [3]float32{1, 2, 3},
		Radius:        4,
		ConeAxis:      [3]int8{-127, 0, 127},
		ConeCutoff:    64,
		DataOffset:    100,
		MeshIndex:     7,
		VertexCount:   64,
		TriangleCount: 124,
	}
	b := m.Marshal()
	require.Len(t, b, 32)

	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(b[8:])))
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(b[12:])))
	assert.Equal(t, []byte{0x81, 0x00, 0x7f, 0x40}, b[16:20])
	assert.Equal(t, uint32(100), binary.LittleEndian.Uint32(b[20:]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(b[24:]))
	assert.Equal(t, uint32(64|124<<8), binary.LittleEndian.Uint32(b[28:]))
	assert.Equal(t, uint32(93), m.PackedWords())
	assert.False(t, m.IsEmpty())
	assert.True(t, (&GPUMeshlet{}).IsEmpty())
}

func TestDrawCountsReset(t *testing.T) {
	c := ResetDrawCounts(1234, 3, true)
	assert.Zero(t, c.OpaqueVisible)
	assert.Zero(t, c.OpaqueCulled)
	assert.Zero(t, c.TransparentVisible)
	assert.Zero(t, c.TransparentCulled)
	assert.Equal(t, uint32(1234), c.TotalCount)
	assert.Equal(t, uint32(3), c.DepthPyramidIndex)
	assert.Equal(t, uint32(1), c.IsLatePass)

	b := c.Marshal()
	require.Len(t, b, 48)
	assert.Equal(t, make([]byte, 16), b[:16])
	assert.Equal(t, c, UnmarshalDrawCounts(b))

	c.Dispatch = [3]uint32{5, 1, 1}
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(c.Marshal()[DrawCountsDispatchOffset:]))
}

func TestDrawArgsReset(t *testing.T) {
	a := ResetDrawArgs()
	assert.Equal(t, uint32(372), a.VertexCount)
	assert.Zero(t, a.InstanceCount)
}

func TestMarshalAll(t *testing.T) {
	cmds := []GPUDrawCommand{
		{DrawID: 1, GroupCounts: [3]uint32{2, 1, 1}},
		{DrawID: 9, GroupCounts: [3]uint32{4, 1, 1}},
	}
	b := MarshalAll(cmds)
	require.Len(t, b, 32)
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(b[16:]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(b[20:]))
	assert.Nil(t, MarshalAll([]GPUDrawCommand(nil)))
}

func TestFrameUniformsMarshal(t *testing.T) {
	u := GPUFrameUniforms{
		CameraPosition:  [3]float32{1, 2, 3},
		InstanceCount:   42,
		VisibilityFlags: VisibilityCulling | VisibilityConeCulling,
		NormalEncoding:  uint32(NormalEncodingSymmetric),
		MeshletCapacity: 640,
	}
	u.Planes[5] = [4]float32{0, 0, -1, 100}
	b := u.Marshal()
	require.Len(t, b, 192)
	assert.Equal(t, float32(100), math.Float32frombits(binary.LittleEndian.Uint32(b[64+5*16+12:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(b[168:])))
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(b[172:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[176:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[180:]))
	assert.Equal(t, uint32(640), binary.LittleEndian.Uint32(b[184:]))
}

func TestNewMeshBounds(t *testing.T) {
	m := NewGridMesh("grid", 2, 4)
	assert.Equal(t, [3]float32{-2, 0, -2}, m.Bounds.Min)
	assert.Equal(t, [3]float32{2, 0, 2}, m.Bounds.Max)
	assert.Equal(t, 8, m.TriangleCount())
	require.NoError(t, m.Validate())

	s := m.BoundingSphere()
	assert.Equal(t, [3]float32{0, 0, 0}, s.Center)
	assert.InDelta(t, 2*math.Sqrt2, s.Radius, 1e-5)

	empty := NewMesh("empty", nil, nil)
	assert.Equal(t, [3]float32{}, empty.Bounds.Min)
	assert.Zero(t, empty.TriangleCount())
}

func TestMeshValidate(t *testing.T) {
	vertices := make([]Vertex, 3)
	tests := []struct {
		name    string
		mesh    *Mesh
		wantErr string
	}{
		{"ok", NewMesh("ok", vertices, []uint16{0, 1, 2}), ""},
		{"ragged", NewMesh("ragged", vertices, []uint16{0, 1}), "not a multiple of 3"},
		{"range", NewMesh("range", vertices, []uint16{0, 1, 3}), "out of range"},
		{"part", NewMesh("part", vertices, []uint16{0, 1, 2}, WithParts(MeshPart{IndexOffset: 3, IndexCount: 3})), "exceeds the index buffer"},
		{"rotated and scaled", NewMesh("rs", vertices, []uint16{0, 1, 2}, WithTransforms([16]float32{
			0, 2, 0, 0,
			-2, 0, 0, 0,
			0, 0, 2, 0,
			4, 5, 6, 1,
		})), ""},
		{"stretched", NewMesh("stretched", vertices, []uint16{0, 1, 2}, WithTransforms([16]float32{
			1, 0, 0, 0,
			0, 3, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		})), "transform 0 has non-uniform scale"},
		{"sheared", NewMesh("sheared", vertices, []uint16{0, 1, 2}, WithTransforms([16]float32{
			1, 0, 0, 0,
			0.5, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		})), "non-uniform scale or shear"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMeshOptions(t *testing.T) {
	m := NewSphereMesh("s", 8, 4, 1)
	assert.False(t, m.Transparent())
	require.Len(t, m.Placements(), 1)
	assert.Equal(t, float32(1), m.Placements()[0][15])

	var tr [16]float32
	tr[12] = 3
	m = NewSphereMesh("s", 8, 4, 1, WithAlphaMode(AlphaModeBlend), WithTransforms(tr, tr))
	assert.True(t, m.Transparent())
	assert.Len(t, m.Placements(), 2)
	assert.Equal(t, uint32(len(m.Indices)), m.Parts[0].IndexCount)
}

func TestPrimitiveCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      *Mesh
		vertices  int
		triangles int
	}{
		{"grid", NewGridMesh("g", 3, 1), 16, 18},
		{"sphere", NewSphereMesh("s", 8, 4, 1), 8*3 + 2, 2 * 8 * 3},
		{"closed fan", NewFanMesh("f", [3]float32{}, 32, 1, true), 33, 32},
		{"open fan", NewFanMesh("f", [3]float32{}, 31, 1, false), 32, 30},
		{"bipyramid", NewBipyramidMesh("b", 62, 1), 64, 124},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.mesh.Vertices, tt.vertices)
			assert.Equal(t, tt.triangles, tt.mesh.TriangleCount())
			assert.NoError(t, tt.mesh.Validate())
		})
	}
}

func TestNormalEncodingString(t *testing.T) {
	assert.Equal(t, "legacy", NormalEncodingLegacy.String())
	assert.Equal(t, "symmetric", NormalEncodingSymmetric.String())
}
