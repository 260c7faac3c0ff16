package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// PadData returns data extended with zero bytes to a multiple of four, the copy granularity
// queue writes require.
//
// Parameters:
//   - data: the bytes to write
//
// Returns:
//   - []byte: data itself when already aligned, otherwise a padded copy
func PadData(data []byte) []byte {
	if rem := len(data) % 4; rem != 0 {
		out := make([]byte, len(data)+4-rem)
		copy(out, data)
		return out
	}
	return data
}
