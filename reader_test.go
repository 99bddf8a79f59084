package sproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderSequentialReads(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 'h', 'i'})

	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), b)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0002), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(3), u32)

	rest, err := r.Read(2)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), rest)

	require.Equal(t, 0, r.BytesLeft())
}

func TestReaderReadPastEndFails(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.Read(2)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReaderLengthPrefixedRoundTrip(t *testing.T) {
	b := &Buffer{}
	b.AppendLengthPrefixed([]byte("payload"))

	r := NewReader(b.Bytes)
	got, err := r.ReadLengthPrefixed()
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)
	require.Equal(t, 0, r.BytesLeft())
}

func TestReaderSkipLengthPrefixed(t *testing.T) {
	b := &Buffer{}
	b.AppendLengthPrefixed([]byte("skip me"))
	b.AppendByte(0x42)

	r := NewReader(b.Bytes)
	require.NoError(t, r.SkipLengthPrefixed())
	next, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x42), next)
}
