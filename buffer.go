package sproto

import (
	"encoding/binary"
	"sync"
)

// Buffer accumulates encoded bytes during record/bundle/frame construction.
// Supports only append operations.
type Buffer struct {
	Bytes []byte
}

// Reset clears the buffer contents but preserves allocated memory.
func (b *Buffer) Reset() {
	b.Bytes = b.Bytes[:0]
}

var bufpool = sync.Pool{
	New: func() any { return &Buffer{} },
}

// NewBufferFromPool obtains a reset Buffer from the pool. Call ReturnToPool
// when finished with it.
func NewBufferFromPool() *Buffer {
	b := bufpool.Get().(*Buffer)
	b.Reset()
	return b
}

// NewBufferFromPoolWithCap acquires a pooled Buffer with guaranteed capacity.
func NewBufferFromPoolWithCap(size int) *Buffer {
	b := bufpool.Get().(*Buffer)
	if c := cap(b.Bytes); c < size {
		b.Bytes = make([]byte, 0, size)
	} else {
		b.Reset()
	}
	return b
}

// ReturnToPool releases the buffer back to the pool. Using the buffer after
// this call results in undefined behavior.
func (b *Buffer) ReturnToPool() {
	bufpool.Put(b)
}

// Len reports the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.Bytes) }

// AppendByte appends a single raw byte.
func (b *Buffer) AppendByte(v byte) {
	b.Bytes = append(b.Bytes, v)
}

// AppendRaw appends raw bytes with no length prefix.
func (b *Buffer) AppendRaw(v []byte) {
	b.Bytes = append(b.Bytes, v...)
}

// AppendU16 appends a little-endian uint16.
func (b *Buffer) AppendU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Bytes = append(b.Bytes, tmp[:]...)
}

// AppendU32 appends a little-endian uint32.
func (b *Buffer) AppendU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Bytes = append(b.Bytes, tmp[:]...)
}

// AppendU64 appends a little-endian uint64.
func (b *Buffer) AppendU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.Bytes = append(b.Bytes, tmp[:]...)
}

// AppendLengthPrefixed appends a u32 length prefix followed by v, the generic
// "len:u32 | bytes[len]" data-region shape used throughout the wire format.
func (b *Buffer) AppendLengthPrefixed(v []byte) {
	b.AppendU32(uint32(len(v)))
	b.Bytes = append(b.Bytes, v...)
}
