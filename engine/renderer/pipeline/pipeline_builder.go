package pipeline

import (
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage of a render pipeline.
//
// Parameters:
//   - s: the vertex shader
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[shader.ShaderTypeVertex] = s
	}
}

// WithFragmentShader sets the fragment stage of a render pipeline.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[shader.ShaderTypeFragment] = s
	}
}

// WithComputeShader sets the shader of a compute pipeline.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.shaders[shader.ShaderTypeCompute] = s
	}
}

// WithRenderState replaces the fixed-function state of a render pipeline.
//
// Parameters:
//   - state: the state, usually OpaqueRenderState or TransparentRenderState
//
// Returns:
//   - PipelineBuilderOption: a function that sets the render state for this pipeline
func WithRenderState(state RenderState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state = state
	}
}

// WithCullMode overrides the cull mode of the current render state. Apply it after
// WithRenderState.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.CullMode = mode
	}
}
