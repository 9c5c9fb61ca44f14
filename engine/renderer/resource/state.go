package resource

import "github.com/cogentcore/webgpu/wgpu"

// State is the tracked access state of a GPU buffer. WebGPU inserts the actual barriers
// itself; the tracked state exists so that every recorded transition can be checked
// against the buffer's previous use.
type State int

const (
	// StateCommon is the initial state of a buffer that has not been used yet.
	StateCommon State = iota

	// StateCopyDest marks a buffer as the destination of a copy or queue write.
	StateCopyDest

	// StateCopySource marks a buffer as the source of a copy.
	StateCopySource

	// StateShaderWrite marks a buffer bound as read_write storage.
	StateShaderWrite

	// StateShaderRead marks a buffer bound as read-only storage.
	StateShaderRead

	// StateIndirectArgument marks a buffer consumed by an indirect dispatch or draw.
	StateIndirectArgument

	// StateUniform marks a buffer bound as a uniform.
	StateUniform
)

var stateNames = [...]string{
	StateCommon:           "common",
	StateCopyDest:         "copy_dest",
	StateCopySource:       "copy_source",
	StateShaderWrite:      "shader_write",
	StateShaderRead:       "shader_read",
	StateIndirectArgument: "indirect_argument",
	StateUniform:          "uniform",
}

func (s State) String() string {
	if s == stateReleased {
		return "released"
	}
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// requiredUsage returns the buffer usage flag a buffer must carry to enter the state.
// StateCommon has no requirement.
func (s State) requiredUsage() wgpu.BufferUsage {
	switch s {
	case StateCopyDest:
		return wgpu.BufferUsageCopyDst
	case StateCopySource:
		return wgpu.BufferUsageCopySrc
	case StateShaderWrite, StateShaderRead:
		return wgpu.BufferUsageStorage
	case StateIndirectArgument:
		return wgpu.BufferUsageIndirect
	case StateUniform:
		return wgpu.BufferUsageUniform
	default:
		return 0
	}
}

// Permits reports whether a buffer created with usage may enter state s.
//
// Parameters:
//   - usage: the usage flags the buffer was created with
//
// Returns:
//   - bool: true if the buffer may be transitioned into s
func (s State) Permits(usage wgpu.BufferUsage) bool {
	required := s.requiredUsage()
	return usage&required == required
}
