package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// RenderState is the fixed-function state of a render pipeline.
type RenderState struct {
	// DepthTest compares against the depth buffer; when false the compare function is Always.
	DepthTest bool

	// DepthWrite stores fragment depth.
	DepthWrite bool

	CullMode  wgpu.CullMode
	FrontFace wgpu.FrontFace
	Topology  wgpu.PrimitiveTopology

	// Blend is the color target blend state; nil disables blending.
	Blend *wgpu.BlendState
}

// DefaultRenderState tests and writes depth, culls nothing and does not blend.
//
// Returns:
//   - RenderState: the state render pipelines start from
func DefaultRenderState() RenderState {
	return RenderState{
		DepthTest:  true,
		DepthWrite: true,
		CullMode:   wgpu.CullModeNone,
		FrontFace:  wgpu.FrontFaceCCW,
		Topology:   wgpu.PrimitiveTopologyTriangleList,
	}
}

// OpaqueRenderState is the default state with back faces culled.
func OpaqueRenderState() RenderState {
	s := DefaultRenderState()
	s.CullMode = wgpu.CullModeBack
	return s
}

// TransparentRenderState tests depth without writing it and blends source-over, so blended
// surfaces never hide each other. Both faces are drawn.
func TransparentRenderState() RenderState {
	s := DefaultRenderState()
	s.DepthWrite = false
	s.Blend = AlphaBlend()
	return s
}

// AlphaBlend returns straight-alpha source-over blending.
//
// Returns:
//   - *wgpu.BlendState: a new blend state
func AlphaBlend() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

// DepthCompare returns the depth compare function for the state.
func (s RenderState) DepthCompare() wgpu.CompareFunction {
	if !s.DepthTest {
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLess
}
