package bind_group_provider

import "github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/resource"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer binds a buffer at a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to bind
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *resource.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithBuffers binds buffers in order starting at binding 0.
//
// Parameters:
//   - buffers: the buffers to bind, one per consecutive binding index
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffers for this provider
func WithBuffers(buffers ...*resource.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		for i, buf := range buffers {
			p.buffers[i] = buf
		}
	}
}
