package sproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferAppendFixedWidth(t *testing.T) {
	b := &Buffer{}
	b.AppendByte(0x7F)
	b.AppendU16(0x0102)
	b.AppendU32(0x01020304)
	b.AppendU64(0x0102030405060708)

	require.Equal(t, []byte{
		0x7F,
		0x02, 0x01,
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}, b.Bytes)
}

func TestBufferAppendLengthPrefixed(t *testing.T) {
	b := &Buffer{}
	b.AppendLengthPrefixed([]byte("hi"))
	require.Equal(t, []byte{0x02, 0x00, 0x00, 0x00, 'h', 'i'}, b.Bytes)
}

func TestBufferPoolResetsOnReuse(t *testing.T) {
	b := NewBufferFromPool()
	b.AppendByte(1)
	b.ReturnToPool()

	b2 := NewBufferFromPool()
	require.Equal(t, 0, b2.Len())
}

func TestBufferFromPoolWithCapGrows(t *testing.T) {
	b := NewBufferFromPoolWithCap(128)
	require.GreaterOrEqual(t, cap(b.Bytes), 128)
	require.Equal(t, 0, b.Len())
}
