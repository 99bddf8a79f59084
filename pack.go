package sproto

// Pack compresses data using a zero-run-length framer: aligned 8-byte
// segments are emitted either as a sparse segment (1-byte bitmask header
// plus the segment's non-zero bytes) or,
// for a run of consecutive segments each carrying 6 or more non-zero
// bytes, as a dense segment (0xFF, a block count, then the raw bytes
// copied through unchanged). A run of a single dense-worthy segment still
// uses dense form; runs longer than 256 blocks are split.
//
// If len(data) is not a multiple of 8, the final segment is right-padded
// with zero bytes before packing. Unpack has no way to recover that the
// original input was shorter, so it always returns a length that's a
// multiple of 8. DecodeRecord rejects trailing bytes, so an unpacked buffer
// can't be handed to it directly; Host.Dispatch instead decodes the envelope
// and the payload without requiring the padding to be consumed.
func Pack(data []byte) []byte {
	segments := splitIntoSegments(data)
	notzero := make([]int, len(segments))
	for i, seg := range segments {
		notzero[i] = countNonZero(seg)
	}

	out := &Buffer{}
	i := 0
	for i < len(segments) {
		if notzero[i] >= 6 {
			j := i + 1
			for j < len(segments) && notzero[j] >= 6 && j-i < 256 {
				j++
			}
			emitDenseRun(out, segments[i:j])
			i = j
		} else {
			emitSparseSegment(out, segments[i])
			i++
		}
	}
	return out.Bytes
}

// Unpack decodes a stream produced by Pack (or a compatible peer): read a
// header byte; 0xFF means a dense run (read a count byte, copy (count+1)*8
// raw bytes through),
// anything else is a sparse bitmask (emit the next input byte for each set
// bit, zero otherwise).
func Unpack(packed []byte) ([]byte, error) {
	r := NewReader(packed)
	out := &Buffer{}

	for r.BytesLeft() > 0 {
		header, err := r.ReadByte()
		if err != nil {
			return nil, wrapf(ErrMalformedPayload, "reading segment header: %v", err)
		}

		if header == 0xFF {
			countByte, err := r.ReadByte()
			if err != nil {
				return nil, wrapf(ErrMalformedPayload, "reading dense run count: %v", err)
			}
			n := int(countByte) + 1
			raw, err := r.Read(n * 8)
			if err != nil {
				return nil, wrapf(ErrMalformedPayload, "reading dense run body: %v", err)
			}
			out.AppendRaw(raw)
			continue
		}

		for i := 0; i < 8; i++ {
			if header&(1<<uint(i)) != 0 {
				b, err := r.ReadByte()
				if err != nil {
					return nil, wrapf(ErrMalformedPayload, "reading sparse segment byte %d: %v", i, err)
				}
				out.AppendByte(b)
			} else {
				out.AppendByte(0)
			}
		}
	}

	return out.Bytes, nil
}

// splitIntoSegments divides data into 8-byte segments, zero-padding the
// last one if data's length isn't a multiple of 8.
func splitIntoSegments(data []byte) [][8]byte {
	n := (len(data) + 7) / 8
	segments := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(segments[i][:], data[i*8:min(len(data), i*8+8)])
	}
	return segments
}

func countNonZero(seg [8]byte) int {
	n := 0
	for _, b := range seg {
		if b != 0 {
			n++
		}
	}
	return n
}

func emitSparseSegment(out *Buffer, seg [8]byte) {
	var header byte
	payload := make([]byte, 0, 7)
	for i := 0; i < 8; i++ {
		if seg[i] != 0 {
			header |= 1 << uint(i)
			payload = append(payload, seg[i])
		}
	}
	out.AppendByte(header)
	out.AppendRaw(payload)
}

func emitDenseRun(out *Buffer, segs [][8]byte) {
	out.AppendByte(0xFF)
	out.AppendByte(byte(len(segs) - 1))
	for _, seg := range segs {
		out.AppendRaw(seg[:])
	}
}
