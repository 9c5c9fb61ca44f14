package resource

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// minBufferSize is the smallest size a buffer is created with. Runtime-sized storage
// arrays must be bound with at least one element, and 16 bytes covers every record
// bound as one.
const minBufferSize = 16

// Buffer owns a GPU buffer handle together with the usage it was created with and its
// tracked access state. A Buffer is released exactly once; Release on an already
// released Buffer is a no-op.
type Buffer struct {
	mu     sync.Mutex
	label  string
	size   uint64
	usage  wgpu.BufferUsage
	state  State
	handle *wgpu.Buffer
}

// NewBuffer wraps an already created GPU buffer. The handle may be nil for buffers that
// only exist on the CPU side of a test double.
//
// Parameters:
//   - label: the debug label used in transition panics and logs
//   - size: the size of the buffer in bytes
//   - usage: the usage flags the buffer was created with
//   - initial: the state the buffer starts in
//   - handle: the underlying GPU buffer
//
// Returns:
//   - *Buffer: the owning handle
func NewBuffer(label string, size uint64, usage wgpu.BufferUsage, initial State, handle *wgpu.Buffer) *Buffer {
	if !initial.Permits(usage) {
		panic(fmt.Sprintf("resource: buffer %q cannot start in state %s with usage %#x", label, initial, uint64(usage)))
	}
	return &Buffer{
		label:  label,
		size:   size,
		usage:  usage,
		state:  initial,
		handle: handle,
	}
}

// AllocationSize rounds a requested byte size up to a size that is valid for creation
// and binding: a multiple of 4 and at least minBufferSize.
//
// Parameters:
//   - size: the requested size in bytes
//
// Returns:
//   - uint64: the size to allocate
func AllocationSize(size uint64) uint64 {
	size = (size + 3) &^ 3
	return max(size, minBufferSize)
}

func (b *Buffer) Label() string {
	return b.label
}

func (b *Buffer) Size() uint64 {
	return b.size
}

func (b *Buffer) Usage() wgpu.BufferUsage {
	return b.usage
}

// Handle returns the underlying GPU buffer, or nil once the Buffer has been released.
func (b *Buffer) Handle() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// State returns the tracked access state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateReleased
}

// Transition moves the buffer from one access state to another. The tracked state must
// equal from and the buffer's usage must permit to; any other sequence is a recording
// bug and panics.
//
// Parameters:
//   - from: the state the caller believes the buffer is in
//   - to: the state the buffer is moved into
func (b *Buffer) Transition(from, to State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateReleased {
		panic(fmt.Sprintf("resource: transition of released buffer %q", b.label))
	}
	if b.state != from {
		panic(fmt.Sprintf("resource: buffer %q transition %s -> %s, but it is in state %s", b.label, from, to, b.state))
	}
	if !to.Permits(b.usage) {
		panic(fmt.Sprintf("resource: buffer %q usage %#x does not permit state %s", b.label, uint64(b.usage), to))
	}
	b.state = to
}

// Require panics unless the buffer is in the given state. It is used by recording
// paths that consume a buffer without moving it.
//
// Parameters:
//   - s: the state the buffer must be in
func (b *Buffer) Require(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != s {
		panic(fmt.Sprintf("resource: buffer %q used as %s while in state %s", b.label, s, b.state))
	}
}

// Release destroys the GPU buffer. Subsequent calls do nothing.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateReleased {
		return
	}
	if b.handle != nil {
		b.handle.Release()
		b.handle = nil
	}
	b.state = stateReleased
}

// stateReleased is kept out of the exported set so callers can never transition into it.
const stateReleased State = -1
