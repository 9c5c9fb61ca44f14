package bind_group_provider

import "github.com/Carmen-Shannon/oxy-meshlet/engine/renderer/resource"

// BufferWrite describes a single queue write of Data into Buffer at a byte offset.
type BufferWrite struct {
	Buffer *resource.Buffer
	Offset uint64
	Data   []byte
}
