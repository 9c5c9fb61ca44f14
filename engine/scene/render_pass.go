package scene

import (
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderPass identifies one of the fixed draw passes of a frame. Each pass owns one draw
// args record, one visible meshlet list and one render pipeline.
type RenderPass int

const (
	// RenderPassOpaque draws every visible meshlet of an opaque instance with depth writes.
	RenderPassOpaque RenderPass = iota

	// RenderPassTransparent draws every visible meshlet of a transparent instance with alpha
	// blending and depth writes disabled, after the opaque pass.
	RenderPassTransparent

	renderPassCount
)

var renderPassNames = [renderPassCount]string{
	RenderPassOpaque:      "opaque",
	RenderPassTransparent: "transparent",
}

// renderPassPipelineKeys indexes the draw pipeline of each pass.
var renderPassPipelineKeys = [renderPassCount]string{
	RenderPassOpaque:      "meshlet_draw_opaque",
	RenderPassTransparent: "meshlet_draw_transparent",
}

func (p RenderPass) String() string {
	if p < 0 || p >= renderPassCount {
		return "unknown"
	}
	return renderPassNames[p]
}

// PipelineKey returns the key of the pass's render pipeline.
func (p RenderPass) PipelineKey() string {
	return renderPassPipelineKeys[p]
}

// ArgsOffset returns the byte offset of the pass's record in the draw args buffer.
func (p RenderPass) ArgsOffset() uint64 {
	var args model.GPUDrawArgs
	return uint64(p) * uint64(args.Size())
}

// RenderState returns the fixed-function state of the pass's draw pipeline.
func (p RenderPass) RenderState() pipeline.RenderState {
	if p == RenderPassTransparent {
		return pipeline.TransparentRenderState()
	}
	return pipeline.OpaqueRenderState()
}

// ConeCulled reports whether the expand pass may drop back-facing meshlets of this pass. Only
// passes whose pipeline discards back faces allow it; a pass that draws both faces keeps them.
func (p RenderPass) ConeCulled() bool {
	return p.RenderState().CullMode == wgpu.CullModeBack
}

// RenderPasses returns every pass in draw order.
func RenderPasses() []RenderPass {
	return []RenderPass{RenderPassOpaque, RenderPassTransparent}
}
