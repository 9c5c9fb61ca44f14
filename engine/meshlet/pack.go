package meshlet

import (
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/chewxy/math32"
	"github.com/x448/float16"
)

// EncodeUnit quantizes one unit-range component to 8 bits with the given encoding.
// Inputs outside [-1, 1] are clamped first.
//
// The legacy encoding truncates (x + 1) * 127, so 0 maps to 127 and 1 maps to 254. Decoders
// of existing data depend on these exact values.
//
// Parameters:
//   - x: the component value
//   - enc: the encoding to apply
//
// Returns:
//   - uint8: the stored byte
func EncodeUnit(x float32, enc model.NormalEncoding) uint8 {
	x = math32.Max(-1, math32.Min(1, x))
	if enc == model.NormalEncodingSymmetric {
		return uint8(math32.Round((x*0.5 + 0.5) * 255))
	}
	return uint8((x + 1) * 127)
}

// DecodeUnit reverses EncodeUnit up to quantization error.
func DecodeUnit(b uint8, enc model.NormalEncoding) float32 {
	if enc == model.NormalEncodingSymmetric {
		return float32(b)/255*2 - 1
	}
	return float32(b)/127 - 1
}

// packAttribute quantizes the shading data of one vertex.
func packAttribute(v *model.Vertex, enc model.NormalEncoding) model.GPUVertexAttribute {
	var a model.GPUVertexAttribute
	for k := range 3 {
		a.Normal[k] = EncodeUnit(v.Normal[k], enc)
		a.Tangent[k] = EncodeUnit(v.Tangent[k], enc)
	}
	a.Normal[3] = EncodeUnit(0, enc)
	handedness := float32(1)
	if v.Tangent[3] < 0 {
		handedness = -1
	}
	a.Tangent[3] = EncodeUnit(handedness, enc)
	a.UV[0] = float16.Fromfloat32(v.UV[0]).Bits()
	a.UV[1] = float16.Fromfloat32(v.UV[1]).Bits()
	return a
}

// DecodeUV reverses the half-float packing of a texture coordinate.
func DecodeUV(bits [2]uint16) [2]float32 {
	return [2]float32{float16.Frombits(bits[0]).Float32(), float16.Frombits(bits[1]).Float32()}
}

// PackedTriangleWords returns the number of 32-bit words holding triangleCount triangles at
// four local index bytes per word.
func PackedTriangleWords(triangleCount int) int {
	return (triangleCount*3 + 3) / 4
}

// appendClusterData appends a cluster's vertex references followed by its packed triangle
// bytes. Unused bytes of the last word are zero.
//
// Parameters:
//   - data: the meshlet-data words to append to
//   - cl: the cluster to pack
//
// Returns:
//   - []uint32: the extended data
func appendClusterData(data []uint32, cl *cluster) []uint32 {
	data = append(data, cl.vertices...)
	words := PackedTriangleWords(len(cl.triangles) / 3)
	base := len(data)
	data = append(data, make([]uint32, words)...)
	for i, b := range cl.triangles {
		data[base+i/4] |= uint32(b) << (8 * (i % 4))
	}
	return data
}

// UnpackTriangles reads the local triangle indices of one meshlet from the data array.
//
// Parameters:
//   - data: the meshlet-data words
//   - m: the meshlet record
//
// Returns:
//   - []uint8: three local vertex indices per triangle
func UnpackTriangles(data []uint32, m *model.GPUMeshlet) []uint8 {
	out := make([]uint8, int(m.TriangleCount)*3)
	base := int(m.DataOffset) + int(m.VertexCount)
	for i := range out {
		out[i] = uint8(data[base+i/4] >> (8 * (i % 4)))
	}
	return out
}
