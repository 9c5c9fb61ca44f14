package shader

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCullSource = `//@oxy:include meshlet
//@oxy:include frame_uniforms
//@oxy:include draw_counts
//@oxy:group 0 0 storage_read meshlets array<meshlet>
//@oxy:group 0 1 storage_uniform frame frame_uniforms
//@oxy:group 1 0 storage_read_write counts draw_counts
@group(1) @binding(1) var<storage, read> words: array<u32>;

//@oxy:inject visibility

@compute @workgroup_size(64)
fn cs_main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= counts.total_count) {
        return;
    }
}
`

const testVisibility = `fn is_visible(i: u32) -> bool { return true; }`

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	pp := NewPreProcessor()
	pp.Inject(AnnotationArgVisibility, testVisibility)

	out, err := pp.Process(testCullSource)
	require.NoError(t, err)

	assert.Contains(t, out, "struct Meshlet {")
	assert.Contains(t, out, "struct FrameUniforms {")
	assert.Contains(t, out, "@group(0) @binding(0) var<storage, read> meshlets: array<Meshlet>;")
	assert.Contains(t, out, "@group(0) @binding(1) var<uniform> frame: FrameUniforms;")
	assert.Contains(t, out, "@group(1) @binding(0) var<storage, read_write> counts: DrawCounts;")
	assert.Contains(t, out, testVisibility)
	assert.NotContains(t, out, "@oxy:")

	decls := pp.Declarations()
	require.Len(t, decls, 3)
	assert.Equal(t, AnnotationArg("meshlets"), decls[0].Args[1])
	assert.Equal(t, 1, decls[2].Group)
	assert.Equal(t, 0, decls[2].Binding)
}

func TestPreProcessorResetsDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	pp.Inject(AnnotationArgVisibility, testVisibility)

	_, err := pp.Process(testCullSource)
	require.NoError(t, err)
	_, err = pp.Process("//@oxy:group 0 0 storage_read meshes array<mesh>\n")
	require.NoError(t, err)
	assert.Len(t, pp.Declarations(), 1)
}

func TestPreProcessorMissingInjection(t *testing.T) {
	_, err := NewPreProcessor().Process("fn a() {}\n//@oxy:inject visibility\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `line 2: no source injected for slot "visibility"`)
}

func TestParseAnnotationErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		msg  string
	}{
		{"empty", "//@oxy:", "empty @oxy annotation"},
		{"unknown type", "//@oxy:define foo", "unknown @oxy annotation type"},
		{"include arity", "//@oxy:include", "exactly one argument"},
		{"include struct", "//@oxy:include texture", "unknown struct type"},
		{"group arity", "//@oxy:group 0 0 storage_read meshlets", "exactly five arguments"},
		{"group number", "//@oxy:group a 0 storage_read meshlets meshlet", "invalid group number"},
		{"binding number", "//@oxy:group 0 b storage_read meshlets meshlet", "invalid binding number"},
		{"address space", "//@oxy:group 0 0 private meshlets meshlet", "unknown address space"},
		{"array element", "//@oxy:group 0 0 storage_read meshlets array<texture>", "unknown array element type"},
		{"inject slot", "//@oxy:inject shading", "unknown injection slot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnnotation(tt.line, 7)
			require.Error(t, err)
			assert.Nil(t, a)
			assert.Contains(t, err.Error(), "line 7")
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseAnnotationIgnoresPlainLines(t *testing.T) {
	a, err := parseAnnotation("// an ordinary comment", 1)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestNewShaderParsesLayouts(t *testing.T) {
	s := NewShader("cull", ShaderTypeCompute, testCullSource, WithInjection(AnnotationArgVisibility, testVisibility))

	assert.Equal(t, "cs_main", s.EntryPoint())
	assert.Equal(t, [3]uint32{64, 1, 1}, s.WorkgroupSize())
	assert.Equal(t, "cull", s.Module().Label)
	assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)
	assert.Len(t, s.Declarations(), 3)

	g0 := s.BindGroupLayoutDescriptor(0)
	require.Len(t, g0.Entries, 2)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, g0.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(32), g0.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, g0.Entries[1].Buffer.Type)
	assert.Equal(t, uint64(192), g0.Entries[1].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageCompute, g0.Entries[1].Visibility)

	g1 := s.BindGroupLayoutDescriptor(1)
	require.Len(t, g1.Entries, 2)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, g1.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(48), g1.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(4), g1.Entries[1].Buffer.MinBindingSize)

	assert.Equal(t, "counts", s.BindGroupVarName(1, 0))
	assert.Equal(t, "", s.BindGroupVarName(3, 0))
	binding, ok := s.BindingOf(0, "frame")
	assert.True(t, ok)
	assert.Equal(t, 1, binding)
	_, ok = s.BindingOf(0, "missing")
	assert.False(t, ok)
}

func TestNewShaderPanicsOnBadSource(t *testing.T) {
	assert.PanicsWithValue(t, "shader: empty has no source", func() {
		NewShader("empty", ShaderTypeCompute, "")
	})
	assert.Panics(t, func() {
		NewShader("cull", ShaderTypeCompute, testCullSource)
	})
}

func TestReflectEntryPointByStage(t *testing.T) {
	src := `
@vertex
fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }

// @compute fn commented_out() {}
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(); }
`
	ref := reflectWGSL(src, wgpu.ShaderStageVertex)
	assert.Equal(t, "vs_main", ref.entryPoints[ShaderTypeVertex])
	assert.Equal(t, "fs_main", ref.entryPoints[ShaderTypeFragment])
	assert.NotContains(t, ref.entryPoints, ShaderTypeCompute)
}

func TestReflectWorkgroupSize(t *testing.T) {
	tests := []struct {
		src  string
		want [3]uint32
	}{
		{"@compute @workgroup_size(32) fn a() {}", [3]uint32{32, 1, 1}},
		{"@compute @workgroup_size(8, 8) fn a() {}", [3]uint32{8, 8, 1}},
		{"@compute @workgroup_size(4, 2, 3) fn a() {}", [3]uint32{4, 2, 3}},
		{"@compute fn a() {}", [3]uint32{1, 1, 1}},
		{"// @workgroup_size(99)\n@compute fn a() {}", [3]uint32{1, 1, 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reflectWGSL(tt.src, wgpu.ShaderStageCompute).workgroupSize, tt.src)
	}
}

func TestStripComments(t *testing.T) {
	src := "a /* one /* two */ still */ b // tail\nc"
	assert.Equal(t, "a  b \nc", stripComments(src))
}

func TestTypeLayouts(t *testing.T) {
	r := newLayoutResolver(nil)
	tests := []struct {
		typeName string
		want     TypeLayout
	}{
		{"f32", TypeLayout{4, 4}},
		{"f16", TypeLayout{2, 2}},
		{"vec2<f32>", TypeLayout{8, 8}},
		{"vec3f", TypeLayout{12, 16}},
		{"vec3<f16>", TypeLayout{6, 8}},
		{"vec4u", TypeLayout{16, 16}},
		{"mat3x3<f32>", TypeLayout{48, 16}},
		{"mat4x2f", TypeLayout{32, 8}},
		{"mat4x4<f32>", TypeLayout{64, 16}},
		{"atomic<u32>", TypeLayout{4, 4}},
		{"array<vec3<f32>, 4>", TypeLayout{64, 16}},
		{"array<u32>", TypeLayout{4, 4}},
	}
	for _, tt := range tests {
		got, ok := r.typeLayout(tt.typeName)
		require.True(t, ok, tt.typeName)
		assert.Equal(t, tt.want, got, tt.typeName)
	}

	for _, bad := range []string{"vec5<f32>", "mat2x3<bool2>", "array<u32, n>", "Unknown"} {
		_, ok := r.typeLayout(bad)
		assert.False(t, ok, bad)
	}
}

func TestStructLayoutsNested(t *testing.T) {
	src := stripComments(`
struct Inner { a: vec3<f32>, b: f32, }
struct Outer {
    /* nested /* block */ comment */
    inner: Inner,
    planes: array<vec4<f32>, 6>,
    tail: u32,
}
struct Runtime { count: u32, items: array<Inner>, }
struct Varyings { @builtin(position) pos: vec4<f32>, @location(0) @interpolate(flat) id: u32, }
struct Loop { next: Loop, }
`)
	layouts := newLayoutResolver(declaredStructs(src)).all()
	assert.Equal(t, uint64(16), layouts["Inner"].Size)
	assert.Equal(t, uint64(128), layouts["Outer"].Size)
	assert.Equal(t, uint64(16), layouts["Outer"].Align)
	assert.Equal(t, uint64(32), layouts["Runtime"].Size)
	assert.Equal(t, uint64(4), layouts["Varyings"].Size)
	assert.NotContains(t, layouts, "Loop")

	tail, ok := layouts["Outer"].Field("tail")
	require.True(t, ok)
	assert.Equal(t, uint64(112), tail.Offset)
	_, ok = layouts["Outer"].Field("missing")
	assert.False(t, ok)
	assert.False(t, strings.Contains(src, "nested"))
}

// TestRecordLayoutsMatchWGSL checks every Go record against the WGSL struct it is uploaded as.
func TestRecordLayoutsMatchWGSL(t *testing.T) {
	src := `//@oxy:include meshlet
//@oxy:include mesh
//@oxy:include mesh_instance
//@oxy:include draw_command
//@oxy:include draw_counts
//@oxy:include draw_counts_view
//@oxy:include draw_args
//@oxy:include visible_meshlet
//@oxy:include frame_uniforms
//@oxy:include vertex_attribute
@compute @workgroup_size(1)
fn cs_main() {}
`
	s := NewShader("records", ShaderTypeCompute, src)

	records := []struct {
		name string
		size int
	}{
		{"Meshlet", (&model.GPUMeshlet{}).Size()},
		{"Mesh", (&model.GPUMesh{}).Size()},
		{"MeshInstance", (&model.GPUMeshInstance{}).Size()},
		{"DrawCommand", (&model.GPUDrawCommand{}).Size()},
		{"DrawCounts", (&model.GPUDrawCounts{}).Size()},
		{"DrawCountsView", (&model.GPUDrawCounts{}).Size()},
		{"DrawArgs", (&model.GPUDrawArgs{}).Size()},
		{"VisibleMeshlet", (&model.GPUVisibleMeshlet{}).Size()},
		{"FrameUniforms", (&model.GPUFrameUniforms{}).Size()},
		{"VertexAttribute", (&model.GPUVertexAttribute{}).Size()},
	}
	for _, rec := range records {
		l, ok := s.StructLayout(rec.name)
		require.True(t, ok, rec.name)
		assert.Equal(t, uint64(rec.size), l.Size, rec.name)
	}

	counts, _ := s.StructLayout("DrawCounts")
	dispatch, ok := counts.Field("dispatch_x")
	require.True(t, ok)
	assert.Equal(t, uint64(model.DrawCountsDispatchOffset), dispatch.Offset)

	frame, _ := s.StructLayout("FrameUniforms")
	for name, offset := range map[string]uint64{
		"instance_count":   172,
		"visibility_flags": 176,
		"normal_encoding":  180,
		"meshlet_capacity": 184,
	} {
		f, ok := frame.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, offset, f.Offset, name)
	}
}
