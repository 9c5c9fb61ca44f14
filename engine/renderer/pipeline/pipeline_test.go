package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexSource = `//@oxy:include frame_uniforms
//@oxy:group 0 0 storage_uniform frame frame_uniforms
@group(0) @binding(1) var<storage, read> positions: array<f32>;

@vertex
fn vs_main(@builtin(vertex_index) v: u32) -> @builtin(position) vec4<f32> {
    return frame.view_proj * vec4<f32>(positions[v], 0.0, 0.0, 1.0);
}
`

const fragmentSource = `//@oxy:include frame_uniforms
//@oxy:group 0 0 storage_uniform frame frame_uniforms
@group(1) @binding(0) var<storage, read> tint: array<f32>;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(tint[0], 0.0, 0.0, 1.0);
}
`

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("opaque", PipelineTypeRender)

	assert.Equal(t, "opaque", p.PipelineKey())
	assert.Equal(t, PipelineTypeRender, p.Type())
	state := p.RenderState()
	assert.True(t, state.DepthTest)
	assert.True(t, state.DepthWrite)
	assert.Nil(t, state.Blend)
	assert.Equal(t, wgpu.CullModeNone, state.CullMode)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, state.Topology)
	assert.Equal(t, wgpu.CompareFunctionLess, state.DepthCompare())
	assert.Nil(t, p.BindGroupLayout(0))
	assert.Nil(t, p.Shader(shader.ShaderTypeCompute))
}

func TestRenderStateOptions(t *testing.T) {
	transparent := NewPipeline("transparent", PipelineTypeRender, WithRenderState(TransparentRenderState()))
	state := transparent.RenderState()
	assert.False(t, state.DepthWrite)
	assert.True(t, state.DepthTest)
	require.NotNil(t, state.Blend)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, state.Blend.Color.SrcFactor)
	assert.Equal(t, wgpu.CullModeNone, state.CullMode)

	opaque := NewPipeline("opaque", PipelineTypeRender,
		WithRenderState(OpaqueRenderState()),
		WithCullMode(wgpu.CullModeFront),
	)
	assert.Equal(t, wgpu.CullModeFront, opaque.RenderState().CullMode)
	assert.Nil(t, opaque.RenderState().Blend)

	overlay := DefaultRenderState()
	overlay.DepthTest = false
	assert.Equal(t, wgpu.CompareFunctionAlways, overlay.DepthCompare())
}

func TestRenderPipelineMergesStages(t *testing.T) {
	vs := shader.NewShader("vs", shader.ShaderTypeVertex, vertexSource)
	fs := shader.NewShader("fs", shader.ShaderTypeFragment, fragmentSource)
	p := NewPipeline("draw", PipelineTypeRender, WithVertexShader(vs), WithFragmentShader(fs))

	layouts := p.BindGroupLayoutDescriptors()
	require.Len(t, layouts, 2)

	g0 := layouts[0].Entries
	require.Len(t, g0, 2)
	assert.Equal(t, uint32(0), g0[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, g0[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageVertex, g0[1].Visibility)

	require.Len(t, layouts[1].Entries, 1)
	assert.Equal(t, wgpu.ShaderStageFragment, layouts[1].Entries[0].Visibility)

	names := p.BindGroupVarNames()
	assert.Equal(t, "frame", names[0][0])
	assert.Equal(t, "positions", names[0][1])
	assert.Equal(t, "tint", names[1][0])
}

func TestComputePipelineLayouts(t *testing.T) {
	src := `//@oxy:include draw_counts
//@oxy:group 0 0 storage_read_write counts draw_counts

@compute @workgroup_size(1)
fn cs_main() {
    counts.dispatch_z = 1u;
}
`
	cs := shader.NewShader("finalize", shader.ShaderTypeCompute, src)
	p := NewPipeline("finalize", PipelineTypeCompute, WithComputeShader(cs))

	layouts := p.BindGroupLayoutDescriptors()
	require.Len(t, layouts, 1)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, layouts[0].Entries[0].Buffer.Type)
	assert.Equal(t, "counts", p.BindGroupVarNames()[0][0])
	assert.Nil(t, NewPipeline("empty", PipelineTypeCompute).BindGroupLayoutDescriptors())
}

func TestReleaseWithoutGPUObjects(t *testing.T) {
	p := NewPipeline("idle", PipelineTypeCompute)
	p.SetBindGroupLayouts([]*wgpu.BindGroupLayout{nil, nil})
	assert.NotPanics(t, p.Release)
	assert.NotPanics(t, p.Release)
	assert.Nil(t, p.Pipeline().(*wgpu.ComputePipeline))
}
