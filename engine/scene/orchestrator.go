package scene

import (
	"github.com/Carmen-Shannon/oxy-meshlet/common"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/config"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/resource"
	"go.uber.org/zap"
)

// FrameStats is the GPU culling result of one frame, read back when
// config.RenderSettings.ReadbackStats is enabled.
type FrameStats struct {
	// Frame is the frame number the counts belong to.
	Frame uint64

	// Counts is the draw counts record after the cull pass.
	Counts model.GPUDrawCounts

	// Args holds each pass's draw arguments after the expand pass.
	Args [renderPassCount]model.GPUDrawArgs

	// Valid is false until the first readback completes.
	Valid bool
}

// VisibleMeshlets returns the number of meshlets the pass drew.
func (s FrameStats) VisibleMeshlets(pass RenderPass) uint32 {
	return s.Args[pass].InstanceCount
}

// orchestrator records the per-frame cull and draw sequence. It alternates frame slots and
// walks every per-frame buffer through its state cycle so that each slot ends a frame in the
// states it started in.
type orchestrator struct {
	r       renderer.Renderer
	layout  *resourceLayout
	cullKey string
	frame   uint64
	stats   FrameStats
	log     *zap.Logger
}

// resetWrites builds the queue writes that start a frame: zeroed draw counts with the total
// set to the instance count, zeroed draw args and the frame uniforms.
//
// Parameters:
//   - f: the slot being recorded
//   - desc: the frame inputs
//   - settings: the render settings of the frame
//
// Returns:
//   - []bind_group_provider.BufferWrite: the writes, staging counts first
func (o *orchestrator) resetWrites(f *frameResources, desc RenderDescriptor, settings *config.RenderSettings) []bind_group_provider.BufferWrite {
	counts := model.ResetDrawCounts(o.layout.instanceCount, desc.DepthPyramidIndex, desc.LatePass)

	args := make([]model.GPUDrawArgs, renderPassCount)
	for i := range args {
		args[i] = model.ResetDrawArgs()
	}

	frustum := common.ExtractFrustumFromMatrix(desc.ViewProj[:])
	uniforms := model.GPUFrameUniforms{
		ViewProj:        desc.ViewProj,
		Planes:          frustum.GPUPlanes(),
		CameraPosition:  desc.CameraPosition,
		InstanceCount:   o.layout.instanceCount,
		VisibilityFlags: settings.VisibilityFlags(),
		NormalEncoding:  uint32(settings.Encoding()),
		MeshletCapacity: o.layout.meshletCapacity,
	}

	return []bind_group_provider.BufferWrite{
		{Buffer: f.countsStaging, Data: counts.Marshal()},
		{Buffer: f.argsStaging, Data: model.MarshalAll(args)},
		{Buffer: f.frame, Data: uniforms.Marshal()},
	}
}

// recordFrame records and submits one frame on the next slot.
//
// The sequence is: reset writes, counts and args to CopyDest, staging copies, counts and
// args and commands to ShaderWrite, cull, finalize, counts to IndirectArgument, expand,
// commands and args to IndirectArgument, the optional readback copies, counts back to
// ShaderWrite, then one indirect draw per render pass.
//
// Parameters:
//   - desc: the frame inputs
//   - settings: the render settings of the frame, never mutated
//
// Returns:
//   - error: an error if the frame could not begin or a pipeline is missing
func (o *orchestrator) recordFrame(desc RenderDescriptor, settings *config.RenderSettings) error {
	r := o.r
	slot := int(o.frame % uint64(len(o.layout.slots)))
	f := o.layout.slots[slot]

	if err := r.BeginFrame(slot); err != nil {
		return err
	}
	// The slot's previous submission is complete once BeginFrame returns.
	if f.readbackPending {
		o.collectReadback(f)
	}

	// Reset.
	r.WriteBuffers(o.resetWrites(f, desc, settings))

	r.Transition(f.counts, resource.StateShaderWrite, resource.StateCopyDest)
	r.Transition(f.args, resource.StateIndirectArgument, resource.StateCopyDest)
	r.CopyBuffer(f.countsStaging, f.counts, drawCountsSize)
	r.CopyBuffer(f.argsStaging, f.args, uint64(renderPassCount)*drawArgsSize)
	r.Transition(f.counts, resource.StateCopyDest, resource.StateShaderWrite)
	r.Transition(f.commands, resource.StateIndirectArgument, resource.StateShaderWrite)
	r.Transition(f.args, resource.StateCopyDest, resource.StateShaderWrite)

	// Cull.
	groups := common.DivCeil(o.layout.instanceCount, cullWorkgroupSize)
	if err := r.DispatchCompute(o.cullKey, []bind_group_provider.BindGroupProvider{f.cullGroup}, [3]uint32{groups, 1, 1}); err != nil {
		r.EndFrame()
		return err
	}
	if err := r.DispatchCompute(finalizePipelineKey, []bind_group_provider.BindGroupProvider{f.finalizeGroup}, [3]uint32{1, 1, 1}); err != nil {
		r.EndFrame()
		return err
	}

	// Expand.
	r.Transition(f.counts, resource.StateShaderWrite, resource.StateIndirectArgument)
	r.Transition(f.commands, resource.StateShaderWrite, resource.StateShaderRead)
	for _, v := range f.visible {
		r.Transition(v, resource.StateShaderRead, resource.StateShaderWrite)
	}
	if err := r.DispatchComputeIndirect(expandPipelineKey, []bind_group_provider.BindGroupProvider{f.expandGroup}, f.counts, model.DrawCountsDispatchOffset); err != nil {
		r.EndFrame()
		return err
	}

	r.Transition(f.commands, resource.StateShaderRead, resource.StateIndirectArgument)
	r.Transition(f.args, resource.StateShaderWrite, resource.StateIndirectArgument)
	for _, v := range f.visible {
		r.Transition(v, resource.StateShaderWrite, resource.StateShaderRead)
	}

	if settings.ReadbackStats {
		r.Transition(f.counts, resource.StateIndirectArgument, resource.StateCopySource)
		r.CopyBuffer(f.counts, f.countsReadback, drawCountsSize)
		r.Transition(f.counts, resource.StateCopySource, resource.StateShaderWrite)

		r.Transition(f.args, resource.StateIndirectArgument, resource.StateCopySource)
		r.CopyBuffer(f.args, f.argsReadback, uint64(renderPassCount)*drawArgsSize)
		r.Transition(f.args, resource.StateCopySource, resource.StateIndirectArgument)

		f.readbackFrame = o.frame
		f.readbackPending = true
	} else {
		r.Transition(f.counts, resource.StateIndirectArgument, resource.StateShaderWrite)
	}

	// Draw.
	if err := r.BeginRenderPass(); err != nil {
		// A surface that cannot be acquired (minimized window) skips the draw; the compute
		// work is still submitted so the slot's buffers stay consistent.
		o.log.Debug("render pass skipped", zap.Int("slot", slot), zap.Error(err))
	} else {
		for _, pass := range RenderPasses() {
			groups := []bind_group_provider.BindGroupProvider{f.drawGroups[pass]}
			if err := r.DrawIndirect(pass.PipelineKey(), groups, f.args, pass.ArgsOffset()); err != nil {
				r.EndRenderPass()
				r.EndFrame()
				return err
			}
		}
		r.EndRenderPass()
	}

	r.EndFrame()
	o.frame++
	return nil
}

// collectReadback decodes the slot's readback buffers into the latest stats.
func (o *orchestrator) collectReadback(f *frameResources) {
	f.readbackPending = false

	counts, err := o.r.ReadBuffer(f.countsReadback)
	if err != nil {
		o.log.Warn("draw counts readback failed", zap.Int("slot", f.slot), zap.Error(err))
		return
	}
	args, err := o.r.ReadBuffer(f.argsReadback)
	if err != nil {
		o.log.Warn("draw args readback failed", zap.Int("slot", f.slot), zap.Error(err))
		return
	}

	stats := FrameStats{
		Frame:  f.readbackFrame,
		Counts: model.UnmarshalDrawCounts(counts),
		Valid:  true,
	}
	for _, pass := range RenderPasses() {
		off := pass.ArgsOffset()
		stats.Args[pass] = model.UnmarshalDrawArgs(args[off : off+drawArgsSize])
	}
	o.stats = stats
}
