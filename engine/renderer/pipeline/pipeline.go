package pipeline

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType is either compute or render.
type PipelineType int

const (
	// PipelineTypeCompute has a single compute stage.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender has a vertex and a fragment stage.
	PipelineTypeRender
)

// stageOrder is the order stages are merged in, so merged labels come from the first stage.
var stageOrder = [...]shader.ShaderType{shader.ShaderTypeCompute, shader.ShaderTypeVertex, shader.ShaderTypeFragment}

// Pipeline is a compute or render pipeline description plus the GPU objects the backend
// created from it. Its bind group layouts are reflected from the stage shaders; whoever owns
// the bound buffers builds bind groups against them.
type Pipeline interface {
	// Type returns whether this is a compute or render pipeline.
	Type() PipelineType

	// PipelineKey returns the unique name the renderer registers the pipeline under.
	PipelineKey() string

	// Shader returns the shader of a stage, or nil if the stage is not set.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the stage shader, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Pipeline returns *wgpu.RenderPipeline or *wgpu.ComputePipeline according to Type. The
	// value is a typed nil until the backend created it.
	Pipeline() any

	// BindGroupLayoutDescriptors merges the reflected layouts of every stage. A binding
	// declared by several stages is visible to all of them.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: layouts keyed by group, nil without stages
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarNames returns the variable name of every binding of every stage, keyed by
	// group then binding.
	BindGroupVarNames() map[int]map[int]string

	// BindGroupLayout returns the created layout of a group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil before creation or for unused groups
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// RenderState returns the fixed-function state of a render pipeline.
	RenderState() RenderState

	// SetRenderPipeline stores the created render pipeline.
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the created compute pipeline.
	SetComputePipeline(p *wgpu.ComputePipeline)

	// SetBindGroupLayouts stores the created layouts indexed by group; unused groups are nil.
	SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout)

	// Release releases the GPU pipeline and its layouts. Calling it again is a no-op.
	Release()
}

type pipeline struct {
	key          string
	pipelineType PipelineType
	shaders      map[shader.ShaderType]shader.Shader
	state        RenderState

	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
	layouts []*wgpu.BindGroupLayout
}

var _ Pipeline = &pipeline{}

// NewPipeline describes a pipeline. Render pipelines start from DefaultRenderState.
//
// Parameters:
//   - pipelineKey: the unique pipeline name
//   - pipelineType: compute or render
//   - opts: stage shaders and render state options
//
// Returns:
//   - Pipeline: the description, without GPU objects until registered with a renderer
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:          pipelineKey,
		pipelineType: pipelineType,
		shaders:      make(map[shader.ShaderType]shader.Shader, 2),
		state:        DefaultRenderState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.key
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	return p.shaders[shaderType]
}

func (p *pipeline) Pipeline() any {
	if p.pipelineType == PipelineTypeRender {
		return p.render
	}
	return p.compute
}

// stages returns the set shaders in stageOrder.
func (p *pipeline) stages() []shader.Shader {
	var out []shader.Shader
	for _, t := range stageOrder {
		if s := p.shaders[t]; s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	stages := p.stages()
	if len(stages) == 0 {
		return nil
	}
	layouts := make([]map[int]wgpu.BindGroupLayoutDescriptor, len(stages))
	for i, s := range stages {
		layouts[i] = s.BindGroupLayoutDescriptors()
	}
	return mergeBindGroupLayouts(layouts...)
}

func (p *pipeline) BindGroupVarNames() map[int]map[int]string {
	names := make(map[int]map[int]string)
	for _, s := range p.stages() {
		for g, bindings := range s.BindGroupVarNames() {
			if names[g] == nil {
				names[g] = make(map[int]string, len(bindings))
			}
			for b, name := range bindings {
				names[g][b] = name
			}
		}
	}
	return names
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.layouts) {
		return nil
	}
	return p.layouts[group]
}

func (p *pipeline) RenderState() RenderState {
	return p.state
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.render = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.compute = cp
}

func (p *pipeline) SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	p.layouts = layouts
}

func (p *pipeline) Release() {
	if p.render != nil {
		p.render.Release()
		p.render = nil
	}
	if p.compute != nil {
		p.compute.Release()
		p.compute = nil
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	p.layouts = nil
}

// mergeBindGroupLayouts unions per-stage layouts group by group. Entries sharing a binding
// keep the first stage's entry with the visibility of every stage ORed in. Each merged group
// is sorted by binding and keeps the label of the first stage declaring it.
//
// Parameters:
//   - stages: the reflected layouts of each stage
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged layouts keyed by group
func mergeBindGroupLayouts(stages ...map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	labels := make(map[int]string)
	entries := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, stage := range stages {
		for g, desc := range stage {
			if entries[g] == nil {
				entries[g] = make(map[uint32]wgpu.BindGroupLayoutEntry, len(desc.Entries))
				labels[g] = desc.Label
			}
			for _, e := range desc.Entries {
				if existing, ok := entries[g][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					e = existing
				}
				entries[g][e.Binding] = e
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for g, byBinding := range entries {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, e := range byBinding {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Label: labels[g], Entries: list}
	}
	return merged
}
