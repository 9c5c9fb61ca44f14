package bind_group_provider

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label used for the GPU objects created from this provider.
	label string

	// group is the @group index this provider is bound to.
	group int

	// bindGroup is created by the Renderer in InitBindGroup against bindGroupLayout, which
	// is borrowed from the pipeline that declared the group.
	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout

	// buffers are the resources bound at each binding index. They are owned by whoever
	// allocated them, not by the provider.
	buffers map[int]*resource.Buffer
}

// BindGroupProvider describes one bind group: the buffers bound at each binding index and,
// once initialized by the Renderer, the GPU bind group built from them.
//
// Usage pattern:
//  1. The resource layout creates a BindGroupProvider with the buffers for one @group
//  2. Renderer.InitBindGroup(provider, layout) creates the bind group against a pipeline's layout
//  3. Dispatches and draws receive the provider and bind BindGroup() at Group()
//  4. Release drops the GPU bind group; the buffers are released by their owner
type BindGroupProvider interface {
	// Release releases the bind group held by this provider. The layout belongs to the
	// pipeline it was taken from and the bound buffers to their owner, so neither is released.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the @group index the bind group is set at.
	//
	// Returns:
	//   - int: the group index
	Group() int

	// BindGroup returns the created bind group, or nil before InitBindGroup.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group was created against, or nil before InitBindGroup.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer bound at the given binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *resource.Buffer: the bound buffer or nil
	Buffer(binding int) *resource.Buffer

	// Buffers returns every bound buffer keyed by binding index.
	//
	// Returns:
	//   - map[int]*resource.Buffer: the bound buffers
	Buffers() map[int]*resource.Buffer

	// Bindings returns the bound binding indices in ascending order.
	//
	// Returns:
	//   - []int: the sorted binding indices
	Bindings() []int

	SetBindGroup(bg *wgpu.BindGroup)

	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	SetBuffer(binding int, buf *resource.Buffer)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider for the given @group index.
//
// Parameters:
//   - label: the debug label for the provider
//   - group: the @group index the bind group is set at
//   - options: functional options applied after the defaults
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, group int, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		group:   group,
		buffers: make(map[int]*resource.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() int {
	return p.group
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *resource.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*resource.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) Bindings() []int {
	out := make([]int, 0, len(p.buffers))
	for b := range p.buffers {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *resource.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*resource.Buffer)
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.bindGroupLayout = nil
}
