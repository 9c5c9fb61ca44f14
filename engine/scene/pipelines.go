package scene

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/cull.wgsl
var cullSource string

//go:embed assets/finalize.wgsl
var finalizeSource string

//go:embed assets/expand.wgsl
var expandSource string

//go:embed assets/meshlet_vert.wgsl
var meshletVertexSource string

//go:embed assets/meshlet_frag.wgsl
var meshletFragmentSource string

//go:embed assets/meshlet_blend_frag.wgsl
var meshletBlendFragmentSource string

const (
	// cullWorkgroupSize is the invocation count of one cull workgroup, one per instance.
	cullWorkgroupSize = 64

	finalizePipelineKey = "meshlet_cull_finalize"
	expandPipelineKey   = "meshlet_expand"
)

// cullPipelineKey returns the key of the cull pipeline compiled with test. Each predicate
// gets its own pipeline so scenes with different predicates can share a renderer.
func cullPipelineKey(test VisibilityTest) string {
	return "meshlet_cull_" + test.Name()
}

// newPipelines builds the compute and render pipelines of the meshlet pipeline. The
// pipelines carry shaders and state only; the renderer creates their GPU objects.
//
// Parameters:
//   - test: the visibility predicate spliced into the cull shader
//
// Returns:
//   - []pipeline.Pipeline: cull, finalize, expand and one draw pipeline per RenderPass
func newPipelines(test VisibilityTest) []pipeline.Pipeline {
	cull := pipeline.NewPipeline(cullPipelineKey(test), pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader(cullPipelineKey(test), shader.ShaderTypeCompute, cullSource,
			shader.WithInjection(shader.AnnotationArgVisibility, test.WGSL()),
		)),
	)
	finalize := pipeline.NewPipeline(finalizePipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader(finalizePipelineKey, shader.ShaderTypeCompute, finalizeSource)),
	)
	expand := pipeline.NewPipeline(expandPipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(shader.NewShader(expandPipelineKey, shader.ShaderTypeCompute, expandSource)),
	)

	pipelines := []pipeline.Pipeline{cull, finalize, expand}
	for _, pass := range RenderPasses() {
		pipelines = append(pipelines, newDrawPipeline(pass))
	}
	return pipelines
}

// conePassesWGSL declares the bit mask of render passes the expand shader cone culls, bit i
// standing for pass i.
func conePassesWGSL() string {
	var mask uint32
	for _, pass := range RenderPasses() {
		if pass.ConeCulled() {
			mask |= 1 << uint32(pass)
		}
	}
	return fmt.Sprintf("const CONE_CULLED_PASSES: u32 = %du;", mask)
}

func newDrawPipeline(pass RenderPass) pipeline.Pipeline {
	key := pass.PipelineKey()
	vs := shader.NewShader(key+"_vs", shader.ShaderTypeVertex, meshletVertexSource)

	switch pass {
	case RenderPassTransparent:
		return pipeline.NewPipeline(key, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(vs),
			pipeline.WithFragmentShader(shader.NewShader(key+"_fs", shader.ShaderTypeFragment, meshletBlendFragmentSource)),
			pipeline.WithRenderState(pass.RenderState()),
		)
	default:
		return pipeline.NewPipeline(key, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(vs),
			pipeline.WithFragmentShader(shader.NewShader(key+"_fs", shader.ShaderTypeFragment, meshletFragmentSource)),
			pipeline.WithRenderState(pass.RenderState()),
		)
	}
}
