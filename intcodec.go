package sproto

// fitsInt32SignExtended reports whether v's high 33 bits are all-0 or all-1,
// i.e. it survives a round trip through int32 sign extension.
func fitsInt32SignExtended(v int64) bool {
	return v == int64(int32(v))
}

// appendIntBody appends a signed integer's data-area body: 4 bytes if it is
// sign-extension-safe through int32, else 8 bytes little-endian two's
// complement.
func appendIntBody(b *Buffer, v int64) {
	if fitsInt32SignExtended(v) {
		b.AppendU32(uint32(int32(v)))
	} else {
		b.AppendU64(uint64(v))
	}
}

// readIntBody decodes a 4- or 8-byte signed integer data-area body.
func readIntBody(body []byte) (int64, error) {
	switch len(body) {
	case 4:
		return int64(int32(leU32(body))), nil
	case 8:
		return int64(leU64(body)), nil
	default:
		return 0, wrapf(ErrMalformedPayload, "integer body has invalid length %d", len(body))
	}
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
