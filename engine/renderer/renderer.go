package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/logger"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	fences    frameFences
	frameSlot int
	recording bool

	log *zap.Logger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingPipelines     []pipeline.Pipeline
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the GPU device, caches pipelines by key and records the commands of one
// frame at a time. Every command between BeginFrame and EndFrame lands in a single submission.
// Buffer state transitions are validated here: copies, indirect dispatches and indirect draws
// panic when a buffer is not in the state the command needs.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// CreateBuffer creates an uninitialized GPU buffer wrapped in a state-tracked handle.
	// Creation failure is fatal and panics with the device error.
	//
	// Parameters:
	//   - label: the debug label of the buffer
	//   - size: the size in bytes, rounded up by resource.AllocationSize
	//   - usage: the usage flags of the buffer
	//   - initial: the state the buffer starts in
	//
	// Returns:
	//   - *resource.Buffer: the owning handle
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage, initial resource.State) *resource.Buffer

	// CreateBufferInit creates a GPU buffer holding data. Creation failure panics.
	//
	// Parameters:
	//   - label: the debug label of the buffer
	//   - data: the initial contents
	//   - usage: the usage flags of the buffer
	//   - initial: the state the buffer starts in
	//
	// Returns:
	//   - *resource.Buffer: the owning handle
	CreateBufferInit(label string, data []byte, usage wgpu.BufferUsage, initial resource.State) *resource.Buffer

	// InitBindGroup creates the provider's bind group over its buffers against layout.
	//
	// Parameters:
	//   - provider: the BindGroupProvider holding the buffers to bind
	//   - layout: the layout taken from the pipeline that will bind the group
	//
	// Returns:
	//   - error: an error if a bound buffer was released or bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout) error

	// WriteBuffers enqueues CPU writes. They land before the next submission.
	//
	// Parameters:
	//   - writes: the buffer writes to enqueue
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// ReadBuffer copies the contents of a MapRead buffer to the CPU. It blocks on the device,
	// so callers read only buffers whose submission is known to be complete.
	//
	// Parameters:
	//   - buf: the readback buffer
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: an error if mapping fails
	ReadBuffer(buf *resource.Buffer) ([]byte, error)

	// BeginFrame waits until the slot's previous submission has completed, polling the device
	// while it is busy, then starts recording the frame.
	//
	// Parameters:
	//   - slot: the frame-in-flight slot the frame uses
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginFrame(slot int) error

	// Transition moves a buffer between access states. WebGPU places the hardware barriers
	// itself, so this validates and records the state change only.
	//
	// Parameters:
	//   - buf: the buffer to transition
	//   - from: the state the buffer must currently be in
	//   - to: the new state
	Transition(buf *resource.Buffer, from, to resource.State)

	// CopyBuffer records a copy of size bytes from src to dst. src must be in
	// StateCopySource and dst in StateCopyDest.
	CopyBuffer(src, dst *resource.Buffer, size uint64)

	// DispatchCompute records a compute dispatch of the cached compute pipeline.
	//
	// Parameters:
	//   - key: the compute pipeline key
	//   - groups: the bind groups to set, each at its own group index
	//   - workGroupCount: the number of workgroups in x, y and z
	//
	// Returns:
	//   - error: an error if the pipeline is not registered
	DispatchCompute(key string, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// DispatchComputeIndirect records a compute dispatch whose dimensions are read from indirect
	// at offset. indirect must be in StateIndirectArgument.
	//
	// Returns:
	//   - error: an error if the pipeline is not registered
	DispatchComputeIndirect(key string, groups []bind_group_provider.BindGroupProvider, indirect *resource.Buffer, offset uint64) error

	// BeginRenderPass acquires the swapchain texture and begins the frame's render pass.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	BeginRenderPass() error

	// DrawIndirect records a non-indexed indirect draw of the cached render pipeline. indirect
	// must be in StateIndirectArgument.
	//
	// Returns:
	//   - error: an error if the pipeline is not registered
	DrawIndirect(key string, groups []bind_group_provider.BindGroupProvider, indirect *resource.Buffer, offset uint64) error

	// EndRenderPass ends the frame's render pass.
	EndRenderPass()

	// EndFrame submits everything recorded since BeginFrame as one submission and marks the
	// frame's slot busy until the GPU completes it.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()

	// Resize configures the underlying backend to handle a new surface size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the render pass clears to.
	//
	// Parameters:
	//   - c: the RGBA clear color
	SetClearColor(c [4]float64)

	// Release releases every cached pipeline and the device. The Renderer is unusable afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type for the given window.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - w: the window whose surface the renderer presents to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, w window.Window, options ...RendererBuilderOption) Renderer {
	r := newRenderer(backendType, options...)

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(w.Width(), w.Height())

	if err := r.RegisterPipelines(r.pendingPipelines...); err != nil {
		panic(fmt.Sprintf("renderer: %v", err))
	}
	r.pendingPipelines = nil
	return r
}

// newRenderer applies options to a renderer without a backend.
func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		log:           logger.Named("renderer"),
	}
	// Options run before the backend exists so config flags (e.g. forceFallbackAdapter) are
	// available when the GPU adapter is requested.
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SetClearColor(c [4]float64) {
	r.backend.SetClearColor(wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]})
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("registering compute pipeline %q: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("registering render pipeline %q: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
		r.log.Debug("pipeline registered", zap.String("key", key))
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage, initial resource.State) *resource.Buffer {
	size = resource.AllocationSize(size)
	handle, err := r.backend.CreateBuffer(label, size, usage)
	if err != nil {
		panic(fmt.Sprintf("renderer: creating buffer %q (%d bytes): %v", label, size, err))
	}
	return resource.NewBuffer(label, size, usage, initial, handle)
}

func (r *renderer) CreateBufferInit(label string, data []byte, usage wgpu.BufferUsage, initial resource.State) *resource.Buffer {
	size := resource.AllocationSize(uint64(len(data)))
	if size != uint64(len(data)) {
		padded := make([]byte, size)
		copy(padded, data)
		data = padded
	}
	handle, err := r.backend.CreateBufferInit(label, data, usage)
	if err != nil {
		panic(fmt.Sprintf("renderer: creating buffer %q (%d bytes): %v", label, size, err))
	}
	return resource.NewBuffer(label, size, usage, initial, handle)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout) error {
	handles := make(map[int]*wgpu.Buffer, len(provider.Buffers()))
	for _, binding := range provider.Bindings() {
		buf := provider.Buffer(binding)
		if buf == nil || buf.Released() {
			return fmt.Errorf("bind group %q: binding %d has no live buffer", provider.Label(), binding)
		}
		handles[binding] = buf.Handle()
	}
	bg, err := r.backend.CreateBindGroup(provider.Label(), layout, handles)
	if err != nil {
		return fmt.Errorf("bind group %q: %w", provider.Label(), err)
	}
	provider.SetBindGroupLayout(layout)
	provider.SetBindGroup(bg)
	return nil
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		if w.Buffer == nil || w.Buffer.Released() || len(w.Data) == 0 {
			continue
		}
		r.backend.WriteBuffer(w.Buffer.Handle(), w.Offset, w.Data)
	}
}

func (r *renderer) ReadBuffer(buf *resource.Buffer) ([]byte, error) {
	if buf.Released() {
		return nil, fmt.Errorf("reading buffer %q: released", buf.Label())
	}
	return r.backend.ReadBuffer(buf.Handle(), buf.Size())
}

func (r *renderer) BeginFrame(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("frame for slot %d already recording", r.frameSlot)
	}
	if polls := r.fences.wait(slot, r.backend.Poll); polls > 0 {
		r.log.Debug("waited for frame slot", zap.Int("slot", slot), zap.Int("polls", polls))
	}
	if err := r.backend.BeginEncoding(); err != nil {
		return err
	}
	r.frameSlot = slot
	r.recording = true
	return nil
}

func (r *renderer) Transition(buf *resource.Buffer, from, to resource.State) {
	buf.Transition(from, to)
}

func (r *renderer) CopyBuffer(src, dst *resource.Buffer, size uint64) {
	src.Require(resource.StateCopySource)
	dst.Require(resource.StateCopyDest)
	r.backend.CopyBufferToBuffer(src.Handle(), dst.Handle(), size)
}

func (r *renderer) computePipeline(key string) (pipeline.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pipelineCache[key]
	if !ok || p.Type() != pipeline.PipelineTypeCompute {
		return nil, fmt.Errorf("compute pipeline %q not found in cache", key)
	}
	return p, nil
}

func (r *renderer) DispatchCompute(key string, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	p, err := r.computePipeline(key)
	if err != nil {
		return err
	}
	r.backend.DispatchCompute(p, groups, workGroupCount)
	return nil
}

func (r *renderer) DispatchComputeIndirect(key string, groups []bind_group_provider.BindGroupProvider, indirect *resource.Buffer, offset uint64) error {
	p, err := r.computePipeline(key)
	if err != nil {
		return err
	}
	indirect.Require(resource.StateIndirectArgument)
	r.backend.DispatchComputeIndirect(p, groups, indirect.Handle(), offset)
	return nil
}

func (r *renderer) BeginRenderPass() error {
	return r.backend.BeginRenderPass()
}

func (r *renderer) DrawIndirect(key string, groups []bind_group_provider.BindGroupProvider, indirect *resource.Buffer, offset uint64) error {
	r.mu.Lock()
	p, ok := r.pipelineCache[key]
	r.mu.Unlock()
	if !ok || p.Type() != pipeline.PipelineTypeRender {
		return fmt.Errorf("render pipeline %q not found in cache", key)
	}
	indirect.Require(resource.StateIndirectArgument)
	r.backend.DrawIndirect(p, groups, indirect.Handle(), offset)
	return nil
}

func (r *renderer) EndRenderPass() {
	r.backend.EndRenderPass()
}

func (r *renderer) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	r.recording = false
	done := r.fences.arm(r.frameSlot)
	if err := r.backend.Submit(done); err != nil {
		// Nothing reached the queue, so the slot is free again.
		done()
		r.log.Error("frame submission failed", zap.Int("slot", r.frameSlot), zap.Error(err))
	}
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
	r.fences.reset()
}

// NewRendererWithBackend creates a Renderer over an existing backend. The backend's surface is
// expected to be configured already. Used by tests and tools that drive a recording backend.
//
// Parameters:
//   - backend: the backend to record into
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a Renderer using backend
//   - error: an error if a queued pipeline failed to register
func NewRendererWithBackend(backend RendererBackend, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(BackendTypeWGPU, options...)
	r.backend = backend
	if r.pendingPresentMode != nil {
		backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.RegisterPipelines(r.pendingPipelines...); err != nil {
		return nil, err
	}
	r.pendingPipelines = nil
	return r, nil
}
