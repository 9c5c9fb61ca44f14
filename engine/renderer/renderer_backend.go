package renderer

import (
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

// wgpuRendererBackend records every GPU command of a frame into one command encoder and submits
// it once. The Renderer front validates resource states before calling into it.
type wgpuRendererBackend interface {
	// ConfigureSurface configures the surface and recreates the size dependent attachments.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. It applies on the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the render pass clears to.
	SetClearColor(c wgpu.Color)

	// RegisterRenderPipeline creates the shader modules, bind group layouts, pipeline layout and
	// render pipeline for p, and stores the GPU objects on it.
	//
	// Parameters:
	//   - p: the pipeline object containing the shaders and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline creates the shader module, bind group layouts, pipeline layout and
	// compute pipeline for p, and stores the GPU objects on it.
	//
	// Parameters:
	//   - p: the pipeline object containing the shader for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

	// CreateBuffer creates an uninitialized GPU buffer.
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// CreateBufferInit creates a GPU buffer holding data.
	CreateBufferInit(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// CreateBindGroup creates a bind group over whole buffers against layout.
	//
	// Parameters:
	//   - label: the debug label of the bind group
	//   - layout: the layout the bind group must match
	//   - buffers: the GPU buffers keyed by binding index
	//
	// Returns:
	//   - *wgpu.BindGroup: the created bind group
	//   - error: the device error, if any
	CreateBindGroup(label string, layout *wgpu.BindGroupLayout, buffers map[int]*wgpu.Buffer) (*wgpu.BindGroup, error)

	// WriteBuffer enqueues a CPU write into buf at offset. The write lands before the next submission.
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// ReadBuffer maps a MapRead buffer, copies size bytes out and unmaps it. It blocks on the device.
	ReadBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error)

	// BeginEncoding creates the command encoder for the frame.
	BeginEncoding() error

	// CopyBufferToBuffer records a copy of size bytes from the start of src to the start of dst.
	CopyBufferToBuffer(src, dst *wgpu.Buffer, size uint64)

	// DispatchCompute records a compute pass with a direct dispatch.
	DispatchCompute(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// DispatchComputeIndirect records a compute pass whose dispatch dimensions are read from indirect at offset.
	DispatchComputeIndirect(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, indirect *wgpu.Buffer, offset uint64)

	// BeginRenderPass acquires the swapchain texture and begins the render pass on the frame encoder.
	BeginRenderPass() error

	// DrawIndirect records a non-indexed indirect draw inside the render pass.
	DrawIndirect(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, indirect *wgpu.Buffer, offset uint64)

	// EndRenderPass ends the render pass.
	EndRenderPass()

	// Submit finishes the frame encoder and submits it. onDone runs once the GPU has finished
	// the submission, from inside a later Poll.
	Submit(onDone func()) error

	// Present presents the acquired swapchain texture and releases it.
	Present()

	// Poll blocks until the device has made progress and runs pending callbacks.
	Poll()

	// Release drains the device and releases the surface attachments, device and instance.
	Release()
}
