package bind_group_provider

// BufferWrite describes a single queue write into the buffer at a provider binding.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Write is shorthand for a whole-buffer write at offset zero.
func Write(p BindGroupProvider, binding int, data []byte) BufferWrite {
	return BufferWrite{Provider: p, Binding: binding, Data: data}
}
