package bind_group_provider

// BufferWrite describes one queued upload into the buffer bound at Binding of Provider.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
