package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// Instance flag bits stored in GPUMeshInstance.Flags and GPUMesh.Flags.
const (
	// FlagTransparent routes the instance to the transparent render pass.
	FlagTransparent uint32 = 1 << 0
)

// Visibility flag bits stored in GPUFrameUniforms.VisibilityFlags.
const (
	// VisibilityCulling enables the instance visibility predicate. When clear every
	// instance is treated as visible.
	VisibilityCulling uint32 = 1 << 0

	// VisibilityConeCulling enables per-meshlet backface cone rejection in the expand pass.
	VisibilityConeCulling uint32 = 1 << 1

	// VisibilityMeshletFrustum enables per-meshlet sphere-frustum rejection in the expand pass.
	VisibilityMeshletFrustum uint32 = 1 << 2
)

// gpuRecord is implemented by pointers to fixed-size GPU records.
type gpuRecord[T any] interface {
	*T
	Size() int
	MarshalTo(dst []byte)
}

// MarshalAll serializes a slice of GPU records into one contiguous little-endian byte buffer.
//
// Parameters:
//   - items: the records to serialize
//
// Returns:
//   - []byte: len(items) × record size bytes, or nil for an empty slice
func MarshalAll[T any, P gpuRecord[T]](items []T) []byte {
	if len(items) == 0 {
		return nil
	}
	size := P(&items[0]).Size()
	out := make([]byte, size*len(items))
	for i := range items {
		P(&items[i]).MarshalTo(out[i*size:])
	}
	return out
}

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

// GPUMeshletSource is the canonical WGSL definition of the Meshlet struct.
// Matches GPUMeshlet layout exactly (32 bytes).
//
//go:embed assets/meshlet.wgsl
var GPUMeshletSource string

// GPUMeshlet is one bounded cluster of a mesh: at most 64 vertices and 124 triangles.
// The cone axis and cutoff are quantized to signed 8-bit; the shader reads them from one
// packed u32 (axis x, y, z, cutoff from low to high byte) and the counts from another.
// Size: 32 bytes.
type GPUMeshlet struct {
	Center        [3]float32 // offset  0: bounding sphere center in model space
	Radius        float32    // offset 12: bounding sphere radius
	ConeAxis      [3]int8    // offset 16: quantized cone axis, component / 127
	ConeCutoff    int8       // offset 19: quantized cone cutoff, value / 127
	DataOffset    uint32     // offset 20: first word of the meshlet in the meshlet-data array
	MeshIndex     uint32     // offset 24: owning mesh
	VertexCount   uint8      // offset 28: unique vertices referenced
	TriangleCount uint8      // offset 29: triangles in the meshlet
	_             [2]byte    // offset 30: padding to 32 bytes
}

// Size returns the size of the GPUMeshlet struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMeshlet) Size() int {
	return int(unsafe.Sizeof(*g))
}

// IsEmpty reports whether the meshlet is a padding slot.
func (g *GPUMeshlet) IsEmpty() bool {
	return g.VertexCount == 0 && g.TriangleCount == 0
}

// PackedWords returns the number of 32-bit words holding the meshlet's triangle indices.
func (g *GPUMeshlet) PackedWords() uint32 {
	return (uint32(g.TriangleCount)*3 + 3) / 4
}

// MarshalTo serializes the GPUMeshlet into dst, which must hold at least 32 bytes.
func (g *GPUMeshlet) MarshalTo(dst []byte) {
	putF32(dst[0:], g.Center[0])
	putF32(dst[4:], g.Center[1])
	putF32(dst[8:], g.Center[2])
	putF32(dst[12:], g.Radius)
	dst[16] = byte(g.ConeAxis[0])
	dst[17] = byte(g.ConeAxis[1])
	dst[18] = byte(g.ConeAxis[2])
	dst[19] = byte(g.ConeCutoff)
	binary.LittleEndian.PutUint32(dst[20:], g.DataOffset)
	binary.LittleEndian.PutUint32(dst[24:], g.MeshIndex)
	binary.LittleEndian.PutUint32(dst[28:], uint32(g.VertexCount)|uint32(g.TriangleCount)<<8)
}

// Marshal serializes the GPUMeshlet struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMeshlet) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalTo(buf)
	return buf
}

// GPUMeshSource is the canonical WGSL definition of the Mesh struct.
// Matches GPUMesh layout exactly (64 bytes).
//
//go:embed assets/mesh.wgsl
var GPUMeshSource string

// GPUMesh is the GPU record of a built mesh: its meshlet run, shared-array offsets and bounds.
// Size: 64 bytes.
type GPUMesh struct {
	Center        [3]float32 // offset  0: bounding sphere center in model space
	Radius        float32    // offset 12: bounding sphere radius
	AABBMin       [3]float32 // offset 16: bounding box minimum
	MeshletOffset uint32     // offset 28: first meshlet in the meshlet array
	AABBMax       [3]float32 // offset 32: bounding box maximum
	MeshletCount  uint32     // offset 44: meshlet count, a multiple of 32
	VertexOffset  uint32     // offset 48: first vertex in the shared vertex arrays
	IndexCount    uint32     // offset 52: triangle indices across all meshlets
	Flags         uint32     // offset 56: FlagTransparent
	_             uint32     // offset 60: padding to 64 bytes
}

// Size returns the size of the GPUMesh struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMesh) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUMesh into dst, which must hold at least 64 bytes.
func (g *GPUMesh) MarshalTo(dst []byte) {
	for i := range 3 {
		putF32(dst[i*4:], g.Center[i])
		putF32(dst[16+i*4:], g.AABBMin[i])
		putF32(dst[32+i*4:], g.AABBMax[i])
	}
	putF32(dst[12:], g.Radius)
	binary.LittleEndian.PutUint32(dst[28:], g.MeshletOffset)
	binary.LittleEndian.PutUint32(dst[44:], g.MeshletCount)
	binary.LittleEndian.PutUint32(dst[48:], g.VertexOffset)
	binary.LittleEndian.PutUint32(dst[52:], g.IndexCount)
	binary.LittleEndian.PutUint32(dst[56:], g.Flags)
	binary.LittleEndian.PutUint32(dst[60:], 0)
}

// GPUMeshInstanceSource is the canonical WGSL definition of the MeshInstance struct.
// Matches GPUMeshInstance layout exactly (80 bytes).
//
//go:embed assets/mesh_instance.wgsl
var GPUMeshInstanceSource string

// GPUMeshInstance is the GPU record of one mesh placement.
// Size: 80 bytes.
type GPUMeshInstance struct {
	Model     [16]float32 // offset  0: column-major model matrix
	MeshIndex uint32      // offset 64: placed mesh
	Flags     uint32      // offset 68: FlagTransparent
	NodeIndex uint32      // offset 72: scene-graph node
	_         uint32      // offset 76: padding to 80 bytes
}

// Size returns the size of the GPUMeshInstance struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMeshInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUMeshInstance into dst, which must hold at least 80 bytes.
func (g *GPUMeshInstance) MarshalTo(dst []byte) {
	for i := range 16 {
		putF32(dst[i*4:], g.Model[i])
	}
	binary.LittleEndian.PutUint32(dst[64:], g.MeshIndex)
	binary.LittleEndian.PutUint32(dst[68:], g.Flags)
	binary.LittleEndian.PutUint32(dst[72:], g.NodeIndex)
	binary.LittleEndian.PutUint32(dst[76:], 0)
}

// GPUDrawCommandSource is the canonical WGSL definition of the DrawCommand struct.
//
//go:embed assets/draw_command.wgsl
var GPUDrawCommandSource string

// GPUDrawCommand is one indirect dispatch record written by the culling stage: the visible
// instance and the workgroup counts of its meshlet expansion.
// Size: 16 bytes.
type GPUDrawCommand struct {
	DrawID      uint32    // offset 0: instance index
	GroupCounts [3]uint32 // offset 4: dispatch dimensions, x = ceil(meshletCount / 32)
}

// Size returns the size of the GPUDrawCommand struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUDrawCommand) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUDrawCommand into dst, which must hold at least 16 bytes.
func (g *GPUDrawCommand) MarshalTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], g.DrawID)
	binary.LittleEndian.PutUint32(dst[4:], g.GroupCounts[0])
	binary.LittleEndian.PutUint32(dst[8:], g.GroupCounts[1])
	binary.LittleEndian.PutUint32(dst[12:], g.GroupCounts[2])
}

// GPUDrawCountsSource is the canonical WGSL definition of the DrawCounts struct with atomic
// visibility counters, used by passes that accumulate them.
//
//go:embed assets/draw_counts.wgsl
var GPUDrawCountsSource string

// GPUDrawCountsViewSource is the read-only WGSL view of the DrawCounts layout, used by
// passes that also consume the record as indirect dispatch arguments.
//
//go:embed assets/draw_counts_view.wgsl
var GPUDrawCountsViewSource string

// DrawCountsDispatchOffset is the byte offset of the dispatch dimensions inside
// GPUDrawCounts, used as the indirect offset of the expand dispatch.
const DrawCountsDispatchOffset = 32

// GPUDrawCounts coordinates one frame's CPU reset with the GPU visibility result.
// Size: 48 bytes.
type GPUDrawCounts struct {
	OpaqueVisible      uint32    // offset  0: opaque instances that passed culling
	OpaqueCulled       uint32    // offset  4: opaque instances rejected
	TransparentVisible uint32    // offset  8: transparent instances that passed culling
	TransparentCulled  uint32    // offset 12: transparent instances rejected
	TotalCount         uint32    // offset 16: instances to test this frame
	DepthPyramidIndex  uint32    // offset 20: occlusion source for this frame
	IsLatePass         uint32    // offset 24: 1 during the late (re-test) pass
	_                  uint32    // offset 28: padding
	Dispatch           [3]uint32 // offset 32: expand dispatch dimensions written by finalize
	_                  uint32    // offset 44: padding to 48 bytes
}

// ResetDrawCounts returns the record written at the start of every frame: all visibility
// counters zero and the total set to the instance count.
//
// Parameters:
//   - instanceCount: the number of instances in the scene
//   - depthPyramidIndex: the occlusion source index for this frame
//   - latePass: whether this is the late culling pass
//
// Returns:
//   - GPUDrawCounts: the reset record
func ResetDrawCounts(instanceCount, depthPyramidIndex uint32, latePass bool) GPUDrawCounts {
	c := GPUDrawCounts{
		TotalCount:        instanceCount,
		DepthPyramidIndex: depthPyramidIndex,
	}
	if latePass {
		c.IsLatePass = 1
	}
	return c
}

// Size returns the size of the GPUDrawCounts struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUDrawCounts) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUDrawCounts into dst, which must hold at least 48 bytes.
func (g *GPUDrawCounts) MarshalTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], g.OpaqueVisible)
	binary.LittleEndian.PutUint32(dst[4:], g.OpaqueCulled)
	binary.LittleEndian.PutUint32(dst[8:], g.TransparentVisible)
	binary.LittleEndian.PutUint32(dst[12:], g.TransparentCulled)
	binary.LittleEndian.PutUint32(dst[16:], g.TotalCount)
	binary.LittleEndian.PutUint32(dst[20:], g.DepthPyramidIndex)
	binary.LittleEndian.PutUint32(dst[24:], g.IsLatePass)
	binary.LittleEndian.PutUint32(dst[28:], 0)
	binary.LittleEndian.PutUint32(dst[32:], g.Dispatch[0])
	binary.LittleEndian.PutUint32(dst[36:], g.Dispatch[1])
	binary.LittleEndian.PutUint32(dst[40:], g.Dispatch[2])
	binary.LittleEndian.PutUint32(dst[44:], 0)
}

// Marshal serializes the GPUDrawCounts struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUDrawCounts) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalTo(buf)
	return buf
}

// UnmarshalDrawCounts decodes a GPUDrawCounts record read back from the GPU.
//
// Parameters:
//   - src: at least 48 bytes of little-endian record data
//
// Returns:
//   - GPUDrawCounts: the decoded record
func UnmarshalDrawCounts(src []byte) GPUDrawCounts {
	u := func(off int) uint32 { return binary.LittleEndian.Uint32(src[off:]) }
	return GPUDrawCounts{
		OpaqueVisible:      u(0),
		OpaqueCulled:       u(4),
		TransparentVisible: u(8),
		TransparentCulled:  u(12),
		TotalCount:         u(16),
		DepthPyramidIndex:  u(20),
		IsLatePass:         u(24),
		Dispatch:           [3]uint32{u(32), u(36), u(40)},
	}
}

// GPUDrawArgsSource is the canonical WGSL definition of the DrawArgs struct.
//
//go:embed assets/draw_args.wgsl
var GPUDrawArgsSource string

// GPUDrawArgs matches the WebGPU non-indexed DrawIndirect argument layout. One record
// exists per render pass; the expand stage increments InstanceCount once per visible meshlet.
// Size: 16 bytes.
type GPUDrawArgs struct {
	VertexCount   uint32 // offset  0: MaxMeshletTriangles × 3
	InstanceCount uint32 // offset  4: visible meshlets in the pass
	FirstVertex   uint32 // offset  8
	FirstInstance uint32 // offset 12: always 0
}

// ResetDrawArgs returns the per-pass draw arguments written at the start of every frame.
func ResetDrawArgs() GPUDrawArgs {
	return GPUDrawArgs{VertexCount: MaxMeshletTriangles * 3}
}

// Size returns the size of the GPUDrawArgs struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUDrawArgs) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUDrawArgs into dst, which must hold at least 16 bytes.
func (g *GPUDrawArgs) MarshalTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], g.VertexCount)
	binary.LittleEndian.PutUint32(dst[4:], g.InstanceCount)
	binary.LittleEndian.PutUint32(dst[8:], g.FirstVertex)
	binary.LittleEndian.PutUint32(dst[12:], g.FirstInstance)
}

// UnmarshalDrawArgs decodes a GPUDrawArgs record read back from the GPU.
//
// Parameters:
//   - src: at least 16 bytes of little-endian record data
//
// Returns:
//   - GPUDrawArgs: the decoded record
func UnmarshalDrawArgs(src []byte) GPUDrawArgs {
	return GPUDrawArgs{
		VertexCount:   binary.LittleEndian.Uint32(src[0:]),
		InstanceCount: binary.LittleEndian.Uint32(src[4:]),
		FirstVertex:   binary.LittleEndian.Uint32(src[8:]),
		FirstInstance: binary.LittleEndian.Uint32(src[12:]),
	}
}

// GPUVisibleMeshletSource is the canonical WGSL definition of the VisibleMeshlet struct.
//
//go:embed assets/visible_meshlet.wgsl
var GPUVisibleMeshletSource string

// GPUVisibleMeshlet is one entry of a pass's visible list, appended by the expand stage and
// read by the vertex stage through the instance index.
// Size: 8 bytes.
type GPUVisibleMeshlet struct {
	InstanceIndex uint32 // offset 0
	MeshletIndex  uint32 // offset 4: global meshlet index
}

// Size returns the size of the GPUVisibleMeshlet struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVisibleMeshlet) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUVisibleMeshlet into dst, which must hold at least 8 bytes.
func (g *GPUVisibleMeshlet) MarshalTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], g.InstanceIndex)
	binary.LittleEndian.PutUint32(dst[4:], g.MeshletIndex)
}

// GPUFrameUniformsSource is the canonical WGSL definition of the FrameUniforms struct.
// Matches GPUFrameUniforms layout exactly (192 bytes).
//
//go:embed assets/frame_uniforms.wgsl
var GPUFrameUniformsSource string

// GPUFrameUniforms carries the per-frame camera and culling parameters shared by the cull,
// expand and draw stages.
// Size: 192 bytes.
type GPUFrameUniforms struct {
	ViewProj        [16]float32   // offset   0: combined view-projection matrix
	Planes          [6][4]float32 // offset  64: frustum planes (normal.xyz, distance)
	CameraPosition  [3]float32    // offset 160: world-space camera position
	InstanceCount   uint32        // offset 172: instances in the scene
	VisibilityFlags uint32        // offset 176: Visibility* bits
	NormalEncoding  uint32        // offset 180: NormalEncoding of the attribute stream
	MeshletCapacity uint32        // offset 184: entries per visible list
	_               uint32        // offset 188: padding to 192 bytes
}

// Size returns the size of the GPUFrameUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUFrameUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUFrameUniforms into dst, which must hold at least 192 bytes.
func (g *GPUFrameUniforms) MarshalTo(dst []byte) {
	for i := range 16 {
		putF32(dst[i*4:], g.ViewProj[i])
	}
	for p := range 6 {
		for c := range 4 {
			putF32(dst[64+p*16+c*4:], g.Planes[p][c])
		}
	}
	putF32(dst[160:], g.CameraPosition[0])
	putF32(dst[164:], g.CameraPosition[1])
	putF32(dst[168:], g.CameraPosition[2])
	binary.LittleEndian.PutUint32(dst[172:], g.InstanceCount)
	binary.LittleEndian.PutUint32(dst[176:], g.VisibilityFlags)
	binary.LittleEndian.PutUint32(dst[180:], g.NormalEncoding)
	binary.LittleEndian.PutUint32(dst[184:], g.MeshletCapacity)
	binary.LittleEndian.PutUint32(dst[188:], 0)
}

// Marshal serializes the GPUFrameUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 192-byte buffer ready for GPU upload.
func (g *GPUFrameUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalTo(buf)
	return buf
}

// GPUVertexAttributeSource is the canonical WGSL definition of the VertexAttribute struct.
//
//go:embed assets/vertex_attribute.wgsl
var GPUVertexAttributeSource string

// GPUVertexAttribute is the quantized per-vertex shading data of the meshlet vertex stream.
// Positions are stored separately as three float32 per vertex.
// Size: 12 bytes.
type GPUVertexAttribute struct {
	Normal  [4]uint8  // offset 0: quantized normal xyz, w unused
	Tangent [4]uint8  // offset 4: quantized tangent xyz, handedness in w
	UV      [2]uint16 // offset 8: float16 bits of u and v
}

// Size returns the size of the GPUVertexAttribute struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertexAttribute) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUVertexAttribute into dst, which must hold at least 12 bytes.
func (g *GPUVertexAttribute) MarshalTo(dst []byte) {
	copy(dst[0:4], g.Normal[:])
	copy(dst[4:8], g.Tangent[:])
	binary.LittleEndian.PutUint16(dst[8:], g.UV[0])
	binary.LittleEndian.PutUint16(dst[10:], g.UV[1])
}
