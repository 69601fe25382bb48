package channels

// Buffer holds the output channel values for the current configuration.
// Its length is fixed until the next reconfiguration.
type Buffer struct {
	data []byte
}

// NewBuffer конструктор.
func NewBuffer(count int) *Buffer {
	if count < 0 {
		count = 0
	}
	return &Buffer{data: make([]byte, count)}
}

// Len returns the channel count.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Get returns the value of channel i, 0 when out of range.
func (b *Buffer) Get(i int) uint8 {
	if i < 0 || i >= len(b.data) {
		return 0
	}
	return b.data[i]
}

// SetValue sets one channel. Out of range indices are ignored.
func (b *Buffer) SetValue(i int, v uint8) {
	if i < 0 || i >= len(b.data) {
		return
	}
	b.data[i] = v
}

// Write copies data starting at channel offset, clipped to the buffer end.
// It returns the number of channels written.
func (b *Buffer) Write(offset int, data []byte) int {
	if offset < 0 || offset >= len(b.data) {
		return 0
	}
	return copy(b.data[offset:], data)
}

// Fill sets channels [from, to) to v, clipped to the buffer.
func (b *Buffer) Fill(from, to int, v uint8) {
	if from < 0 {
		from = 0
	}
	if to > len(b.data) {
		to = len(b.data)
	}
	for i := from; i < to; i++ {
		b.data[i] = v
	}
}

// Clear zeroes every channel.
func (b *Buffer) Clear() {
	b.Fill(0, len(b.data), 0)
}

// Bytes exposes the underlying storage. Callers must not retain it across
// a reconfiguration.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Snapshot copies the buffer into dst, growing it when needed.
func (b *Buffer) Snapshot(dst []byte) []byte {
	if cap(dst) < len(b.data) {
		dst = make([]byte, len(b.data))
	}
	dst = dst[:len(b.data)]
	copy(dst, b.data)
	return dst
}
