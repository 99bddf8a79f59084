package sproto

import "encoding/binary"

// Reader provides sequential, bounds-checked access to encoded bytes. Every
// read returns an error on underrun instead of panicking, since these bytes
// can arrive from an untrusted peer over a wire.
type Reader struct {
	bytes    []byte
	position int
}

// NewReader wraps b for sequential reading from position 0.
func NewReader(b []byte) Reader {
	return Reader{bytes: b}
}

// Position reports the current read offset.
func (r *Reader) Position() int { return r.position }

// BytesLeft reports how many unread bytes remain.
func (r *Reader) BytesLeft() int { return len(r.bytes) - r.position }

// Remaining returns the unread tail of the buffer without advancing.
func (r *Reader) Remaining() []byte { return r.bytes[r.position:] }

// Read consumes and returns the next n bytes.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || r.position+n > len(r.bytes) {
		return nil, wrapf(ErrTruncated, "read %d bytes at offset %d, have %d", n, r.position, len(r.bytes))
	}
	b := r.bytes[r.position : r.position+n]
	r.position += n
	return b, nil
}

// ReadByte consumes and returns the next single byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadLengthPrefixed reads a u32 length prefix followed by that many bytes,
// the inverse of Buffer.AppendLengthPrefixed.
func (r *Reader) ReadLengthPrefixed() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.Read(int(n))
}

// SkipLengthPrefixed skips a u32 length prefix and its body without
// allocating, used by the decoder when it encounters a field tag the
// catalogue doesn't recognise (a forward-compatible skip).
func (r *Reader) SkipLengthPrefixed() error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	_, err = r.Read(int(n))
	return err
}
