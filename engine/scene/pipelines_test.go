package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPasses(t *testing.T) {
	assert.Equal(t, []RenderPass{RenderPassOpaque, RenderPassTransparent}, RenderPasses())
	assert.Equal(t, "opaque", RenderPassOpaque.String())
	assert.Equal(t, "transparent", RenderPassTransparent.String())
	assert.Equal(t, "unknown", RenderPass(7).String())
	assert.Equal(t, uint64(0), RenderPassOpaque.ArgsOffset())
	assert.Equal(t, uint64(16), RenderPassTransparent.ArgsOffset())
	assert.Equal(t, "meshlet_draw_transparent", RenderPassTransparent.PipelineKey())
}

func TestNewPipelines(t *testing.T) {
	pipelines := newPipelines(Frustum{})
	require.Len(t, pipelines, 5)

	byKey := map[string]pipeline.Pipeline{}
	for _, p := range pipelines {
		byKey[p.PipelineKey()] = p
	}

	cull := byKey["meshlet_cull_frustum"]
	require.NotNil(t, cull)
	assert.Equal(t, pipeline.PipelineTypeCompute, cull.Type())
	cs := cull.Shader(shader.ShaderTypeCompute)
	assert.Contains(t, cs.Source(), "frame.planes[i]")
	assert.NotContains(t, cs.Source(), "//@oxy:inject")
	assert.Equal(t, [3]uint32{cullWorkgroupSize, 1, 1}, cs.WorkgroupSize())
	assert.Len(t, cull.BindGroupLayoutDescriptors()[0].Entries, 5)

	finalize := byKey[finalizePipelineKey]
	require.NotNil(t, finalize)
	assert.Len(t, finalize.BindGroupLayoutDescriptors()[0].Entries, 1)

	expand := byKey[expandPipelineKey]
	require.NotNil(t, expand)
	assert.Equal(t, [3]uint32{32, 1, 1}, expand.Shader(shader.ShaderTypeCompute).WorkgroupSize())
	assert.Len(t, expand.BindGroupLayoutDescriptors()[0].Entries, 9)

	opaque := byKey["meshlet_draw_opaque"]
	require.NotNil(t, opaque)
	assert.Equal(t, pipeline.PipelineTypeRender, opaque.Type())
	assert.Equal(t, wgpu.CullModeBack, opaque.RenderState().CullMode)
	assert.Nil(t, opaque.RenderState().Blend)
	assert.Len(t, opaque.BindGroupLayoutDescriptors()[0].Entries, 7)

	transparent := byKey["meshlet_draw_transparent"]
	require.NotNil(t, transparent)
	assert.NotNil(t, transparent.RenderState().Blend)
	assert.False(t, transparent.RenderState().DepthWrite)
	assert.True(t, transparent.RenderState().DepthTest)
}

func TestCullPipelineKeyFollowsPredicate(t *testing.T) {
	assert.Equal(t, "meshlet_cull_passthrough", cullPipelineKey(PassThrough{}))
	pipelines := newPipelines(PassThrough{})
	cs := pipelines[0].Shader(shader.ShaderTypeCompute)
	assert.Contains(t, cs.Source(), "return true;")
}

func TestConeCullingSkipsTwoSidedPasses(t *testing.T) {
	assert.True(t, RenderPassOpaque.ConeCulled())
	assert.False(t, RenderPassTransparent.ConeCulled(), "transparent meshlets are drawn from both sides")

	for _, pass := range RenderPasses() {
		backFaces := newDrawPipeline(pass).RenderState().CullMode == wgpu.CullModeBack
		assert.Equal(t, backFaces, pass.ConeCulled(), pass.String())
	}

	assert.Equal(t, "const CONE_CULLED_PASSES: u32 = 1u;", conePassesWGSL())
	var expand pipeline.Pipeline
	for _, p := range newPipelines(PassThrough{}) {
		if p.PipelineKey() == expandPipelineKey {
			expand = p
		}
	}
	require.NotNil(t, expand)
	src := expand.Shader(shader.ShaderTypeCompute).Source()
	assert.Contains(t, src, "const CONE_CULLED_PASSES: u32 = 1u;")
	assert.Contains(t, src, "meshlet_visible(m, instance, pass_index)")
	assert.NotContains(t, src, "//@oxy:inject")
}
