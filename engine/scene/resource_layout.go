package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/meshlet"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	staticUsage   = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	uniformUsage  = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	indirectUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageIndirect | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	commandUsage  = wgpu.BufferUsageStorage | wgpu.BufferUsageIndirect
	stagingUsage  = wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	readbackUsage = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	visibleUsage  = wgpu.BufferUsageStorage
)

var (
	drawCommandSize    = uint64((&model.GPUDrawCommand{}).Size())
	drawCountsSize     = uint64((&model.GPUDrawCounts{}).Size())
	drawArgsSize       = uint64((&model.GPUDrawArgs{}).Size())
	visibleMeshletSize = uint64((&model.GPUVisibleMeshlet{}).Size())
	frameUniformsSize  = uint64((&model.GPUFrameUniforms{}).Size())
)

// staticResources holds the scene-lifetime buffers. They are uploaded once and only read
// by the GPU afterwards.
type staticResources struct {
	meshletData *resource.Buffer
	positions   *resource.Buffer
	attributes  *resource.Buffer
	meshlets    *resource.Buffer
	meshes      *resource.Buffer
	instances   *resource.Buffer
}

func (s *staticResources) buffers() []*resource.Buffer {
	return []*resource.Buffer{s.meshletData, s.positions, s.attributes, s.meshlets, s.meshes, s.instances}
}

// frameResources is everything one frame-in-flight slot writes. No buffer here is shared
// with another slot.
type frameResources struct {
	slot int

	frame *resource.Buffer

	counts         *resource.Buffer
	countsStaging  *resource.Buffer
	countsReadback *resource.Buffer

	args         *resource.Buffer
	argsStaging  *resource.Buffer
	argsReadback *resource.Buffer

	commands *resource.Buffer
	visible  [renderPassCount]*resource.Buffer

	cullGroup     bind_group_provider.BindGroupProvider
	finalizeGroup bind_group_provider.BindGroupProvider
	expandGroup   bind_group_provider.BindGroupProvider
	drawGroups    [renderPassCount]bind_group_provider.BindGroupProvider

	// readbackFrame is the frame whose counts were copied into the readback buffers, valid
	// while readbackPending is set.
	readbackFrame   uint64
	readbackPending bool
}

func (f *frameResources) buffers() []*resource.Buffer {
	out := []*resource.Buffer{
		f.frame,
		f.counts, f.countsStaging, f.countsReadback,
		f.args, f.argsStaging, f.argsReadback,
		f.commands,
	}
	return append(out, f.visible[:]...)
}

func (f *frameResources) groups() []bind_group_provider.BindGroupProvider {
	out := []bind_group_provider.BindGroupProvider{f.cullGroup, f.finalizeGroup, f.expandGroup}
	return append(out, f.drawGroups[:]...)
}

// resourceLayout maps the meshlet store's CPU arrays onto GPU buffers and owns the
// per-slot buffers of the indirect pipeline. Every buffer is sized for the worst case at
// creation and never reallocated.
type resourceLayout struct {
	static          staticResources
	slots           []*frameResources
	instanceCount   uint32
	meshletCapacity uint32
}

// newResourceLayout uploads the store and allocates frames slots of per-frame buffers.
// Device errors panic.
//
// Parameters:
//   - r: the renderer creating the buffers
//   - store: the built meshlet store
//   - frames: the number of frames in flight
//
// Returns:
//   - *resourceLayout: the allocated layout, without bind groups
func newResourceLayout(r renderer.Renderer, store meshlet.Store, frames int) *resourceLayout {
	l := &resourceLayout{
		instanceCount:   uint32(len(store.GPUInstances())),
		meshletCapacity: store.VisibleCapacity(),
	}
	l.uploadStaticResources(r, store)
	l.allocatePerFrameBuffers(r, frames)
	return l
}

// uploadStaticResources creates the device-local buffers holding the meshlet build. They
// start and stay in StateShaderRead.
func (l *resourceLayout) uploadStaticResources(r renderer.Renderer, store meshlet.Store) {
	upload := func(label string, data []byte) *resource.Buffer {
		return r.CreateBufferInit(label, data, staticUsage, resource.StateShaderRead)
	}
	l.static = staticResources{
		meshletData: upload("meshlet data", common.SliceToBytes(store.MeshletData())),
		positions:   upload("meshlet positions", common.SliceToBytes(store.Positions())),
		attributes:  upload("meshlet attributes", model.MarshalAll(store.Attributes())),
		meshlets:    upload("meshlets", model.MarshalAll(store.Meshlets())),
		meshes:      upload("meshes", model.MarshalAll(store.GPUMeshes())),
		instances:   upload("mesh instances", model.MarshalAll(store.GPUInstances())),
	}
}

// allocatePerFrameBuffers creates the buffers of every slot. The command buffer holds two
// commands per instance: the opaque range starts at 0 and the transparent range at the
// instance count. Each visible list holds every meshlet of every instance.
func (l *resourceLayout) allocatePerFrameBuffers(r renderer.Renderer, frames int) {
	commandsSize := 2 * uint64(l.instanceCount) * drawCommandSize
	visibleSize := uint64(l.meshletCapacity) * visibleMeshletSize
	argsSize := uint64(renderPassCount) * drawArgsSize

	l.slots = make([]*frameResources, frames)
	for i := range l.slots {
		label := func(name string) string {
			return fmt.Sprintf("%s slot %d", name, i)
		}
		f := &frameResources{
			slot:           i,
			frame:          r.CreateBuffer(label("frame uniforms"), frameUniformsSize, uniformUsage, resource.StateUniform),
			counts:         r.CreateBuffer(label("draw counts"), drawCountsSize, indirectUsage, resource.StateShaderWrite),
			countsStaging:  r.CreateBuffer(label("draw counts staging"), drawCountsSize, stagingUsage, resource.StateCopySource),
			countsReadback: r.CreateBuffer(label("draw counts readback"), drawCountsSize, readbackUsage, resource.StateCopyDest),
			args:           r.CreateBuffer(label("draw args"), argsSize, indirectUsage, resource.StateIndirectArgument),
			argsStaging:    r.CreateBuffer(label("draw args staging"), argsSize, stagingUsage, resource.StateCopySource),
			argsReadback:   r.CreateBuffer(label("draw args readback"), argsSize, readbackUsage, resource.StateCopyDest),
			commands:       r.CreateBuffer(label("draw commands"), commandsSize, commandUsage, resource.StateIndirectArgument),
		}
		for _, pass := range RenderPasses() {
			f.visible[pass] = r.CreateBuffer(label("visible meshlets "+pass.String()), visibleSize, visibleUsage, resource.StateShaderRead)
		}
		l.slots[i] = f
	}
}

// pipelineGroup pairs a bind group with the pipeline whose group 0 layout it is created against.
type pipelineGroup struct {
	key      string
	provider bind_group_provider.BindGroupProvider
}

// createBindGroups creates the bind groups of every slot against the layouts of the
// registered pipelines.
//
// Parameters:
//   - r: the renderer holding the pipelines
//   - cullKey: the key of the cull pipeline in use
//
// Returns:
//   - error: an error if a pipeline is missing or bind group creation fails
func (l *resourceLayout) createBindGroups(r renderer.Renderer, cullKey string) error {
	layout := func(key string) (*wgpu.BindGroupLayout, error) {
		p := r.Pipeline(key)
		if p == nil {
			return nil, fmt.Errorf("pipeline %q is not registered", key)
		}
		return p.BindGroupLayout(0), nil
	}

	s := &l.static
	for _, f := range l.slots {
		groups := []pipelineGroup{
			{cullKey, bind_group_provider.NewBindGroupProvider(fmt.Sprintf("cull slot %d", f.slot), 0,
				bind_group_provider.WithBuffers(f.frame, s.instances, s.meshes, f.counts, f.commands))},
			{finalizePipelineKey, bind_group_provider.NewBindGroupProvider(fmt.Sprintf("finalize slot %d", f.slot), 0,
				bind_group_provider.WithBuffers(f.counts))},
			{expandPipelineKey, bind_group_provider.NewBindGroupProvider(fmt.Sprintf("expand slot %d", f.slot), 0,
				bind_group_provider.WithBuffers(f.frame, s.instances, s.meshes, s.meshlets, f.counts, f.commands, f.args,
					f.visible[RenderPassOpaque], f.visible[RenderPassTransparent]))},
		}
		for _, pass := range RenderPasses() {
			groups = append(groups, pipelineGroup{pass.PipelineKey(), bind_group_provider.NewBindGroupProvider(fmt.Sprintf("draw %s slot %d", pass, f.slot), 0,
				bind_group_provider.WithBuffers(f.frame, s.instances, s.meshlets, f.visible[pass], s.meshletData, s.positions, s.attributes))})
		}

		for _, g := range groups {
			bgl, err := layout(g.key)
			if err != nil {
				return err
			}
			if err := r.InitBindGroup(g.provider, bgl); err != nil {
				return err
			}
		}
		f.cullGroup = groups[0].provider
		f.finalizeGroup = groups[1].provider
		f.expandGroup = groups[2].provider
		for i, pass := range RenderPasses() {
			f.drawGroups[pass] = groups[3+i].provider
		}
	}
	return nil
}

// Release releases every bind group and buffer the layout owns. It is safe to call more
// than once.
func (l *resourceLayout) Release() {
	for _, f := range l.slots {
		for _, g := range f.groups() {
			if g != nil {
				g.Release()
			}
		}
		for _, b := range f.buffers() {
			if b != nil {
				b.Release()
			}
		}
	}
	l.slots = nil
	for _, b := range l.static.buffers() {
		if b != nil {
			b.Release()
		}
	}
	l.static = staticResources{}
}
