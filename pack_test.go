package sproto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackSparseInput(t *testing.T) {
	in := []byte{0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}
	require.Equal(t, []byte{0x00, 0x01, 0x01}, Pack(in))
}

func TestPackUnpackIdempotent(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0},
		{1, 2, 3, 4, 5, 6, 7, 8},
		bytes.Repeat([]byte{0xAB}, 64),   // all-dense
		bytes.Repeat([]byte{0x00}, 64),   // all-sparse-empty
		append(bytes.Repeat([]byte{0}, 8), bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7}, 3)...),
	}

	for _, b := range cases {
		packed := Pack(b)
		got, err := Unpack(packed)
		require.NoError(t, err)

		want := b
		if len(want)%8 != 0 {
			padded := make([]byte, (len(want)+7)/8*8)
			copy(padded, want)
			want = padded
		}
		require.Equal(t, want, got)
	}
}

func TestPackDenseRunSpansManyBlocks(t *testing.T) {
	in := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 300) // exceeds the 256-block cap
	packed := Pack(in)
	got, err := Unpack(packed)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestUnpackRejectsTruncatedDenseRun(t *testing.T) {
	_, err := Unpack([]byte{0xFF, 0x01, 0x00}) // claims 2 blocks, has 1 byte
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func FuzzPackUnpack(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})

	f.Fuzz(func(t *testing.T, data []byte) {
		packed := Pack(data)
		got, err := Unpack(packed)
		if err != nil {
			t.Fatalf("unpack: %v", err)
		}

		want := data
		if len(want)%8 != 0 {
			padded := make([]byte, (len(want)+7)/8*8)
			copy(padded, want)
			want = padded
		}
		if !bytes.Equal(want, got) {
			t.Fatalf("round trip mismatch: in=%v out=%v", want, got)
		}
	})
}
