// Package renderertest provides a recording RendererBackend that runs without a GPU.
package renderertest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Backend records every call as an op string and hands out nil GPU handles.
// Submissions complete on the next Poll, or immediately when AutoComplete is set.
type Backend struct {
	mu sync.Mutex

	// AutoComplete signals each submission as soon as it is made.
	AutoComplete bool

	// ReadData maps a buffer size to the bytes ReadBuffer returns for it, truncated or
	// zero-padded to the size. Sizes without an entry read as zeros.
	ReadData map[uint64][]byte

	// FailSubmit makes Submit return an error without running onDone.
	FailSubmit bool

	// FailRenderPass makes BeginRenderPass fail as an unacquirable surface would.
	FailRenderPass bool

	ops       []string
	pending   []func()
	polls     int
	submits   int
	buffers   int
	released  bool
	width     int
	height    int
	clear     wgpu.Color
	mode      renderer.PresentMode
	inPass    bool
	recording bool
}

var _ renderer.RendererBackend = &Backend{}

// NewBackend returns an empty recording backend.
func NewBackend() *Backend {
	return &Backend{}
}

func (b *Backend) record(format string, args ...any) {
	b.ops = append(b.ops, fmt.Sprintf(format, args...))
}

// Ops returns a copy of the recorded op strings.
func (b *Backend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

// ResetOps forgets the recorded ops.
func (b *Backend) ResetOps() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
}

// Polls returns how many times Poll ran.
func (b *Backend) Polls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls
}

// Submits returns how many submissions were made.
func (b *Backend) Submits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submits
}

// BuffersCreated returns how many buffers were created.
func (b *Backend) BuffersCreated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffers
}

// Released reports whether Release was called.
func (b *Backend) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// ClearColor returns the last clear color set.
func (b *Backend) ClearColor() wgpu.Color {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clear
}

// Size returns the last configured surface size.
func (b *Backend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *Backend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	b.width, b.height = width, height
	b.record("configure %dx%d", width, height)
}

func (b *Backend) SetPresentMode(mode renderer.PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
}

func (b *Backend) SetClearColor(c wgpu.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clear = c
}

func (b *Backend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("register render %s", p.PipelineKey())
	return nil
}

func (b *Backend) RegisterComputePipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("register compute %s", p.PipelineKey())
	return nil
}

func (b *Backend) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers++
	b.record("create %s %d", label, size)
	return nil, nil
}

func (b *Backend) CreateBufferInit(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers++
	b.record("create %s %d", label, len(data))
	return nil, nil
}

func (b *Backend) CreateBindGroup(label string, layout *wgpu.BindGroupLayout, buffers map[int]*wgpu.Buffer) (*wgpu.BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("bind %s", label)
	return nil, nil
}

func (b *Backend) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("write %d@%d", len(data), offset)
}

func (b *Backend) ReadBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("read %d", size)
	out := make([]byte, size)
	copy(out, b.ReadData[size])
	return out, nil
}

func (b *Backend) BeginEncoding() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.recording {
		return fmt.Errorf("encoder already open")
	}
	b.recording = true
	b.record("begin")
	return nil
}

func (b *Backend) CopyBufferToBuffer(src, dst *wgpu.Buffer, size uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("copy %d", size)
}

func (b *Backend) DispatchCompute(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("dispatch %s %d,%d,%d", p.PipelineKey(), workGroupCount[0], workGroupCount[1], workGroupCount[2])
}

func (b *Backend) DispatchComputeIndirect(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, indirect *wgpu.Buffer, offset uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("dispatch_indirect %s @%d", p.PipelineKey(), offset)
}

func (b *Backend) BeginRenderPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording {
		return fmt.Errorf("no encoder")
	}
	if b.FailRenderPass {
		return fmt.Errorf("surface unavailable")
	}
	b.inPass = true
	b.record("begin_pass")
	return nil
}

func (b *Backend) DrawIndirect(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, indirect *wgpu.Buffer, offset uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("draw_indirect %s @%d", p.PipelineKey(), offset)
}

func (b *Backend) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inPass = false
	b.record("end_pass")
}

func (b *Backend) Submit(onDone func()) error {
	b.mu.Lock()
	b.recording = false
	if b.FailSubmit {
		b.mu.Unlock()
		return fmt.Errorf("submit rejected")
	}
	b.submits++
	b.record("submit")
	auto := b.AutoComplete
	if !auto {
		b.pending = append(b.pending, onDone)
	}
	b.mu.Unlock()

	if auto && onDone != nil {
		onDone()
	}
	return nil
}

func (b *Backend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("present")
}

// Poll completes every pending submission.
func (b *Backend) Poll() {
	b.mu.Lock()
	b.polls++
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, done := range pending {
		if done != nil {
			done()
		}
	}
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
	b.pending = nil
	b.record("release")
}
