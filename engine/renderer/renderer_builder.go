package renderer

import (
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/pipeline"
)

// RendererBuilderOption configures a renderer before its backend is created.
type RendererBuilderOption func(*renderer)

// WithPipelines registers pipelines right after the backend is created. A pipeline that
// fails to register there panics.
//
// Parameters:
//   - pipelines: the pipelines to register
//
// Returns:
//   - RendererBuilderOption: the option
func WithPipelines(pipelines ...pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPipelines = append(r.pendingPipelines, pipelines...)
	}
}

// WithPresentMode selects vsync or uncapped presentation.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the sample count of the draw pass. Counts other than MSAAOff and MSAA4x fall
// back to MSAA4x.
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		if count != MSAAOff {
			count = MSAA4x
		}
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer asks for the CPU fallback adapter. It needs a software Vulkan
// driver such as lavapipe or SwiftShader and is meant for machines without a GPU.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
