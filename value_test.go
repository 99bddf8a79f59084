package sproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueConstructors(t *testing.T) {
	require.Equal(t, KindInteger, Integer(3).Kind)
	require.Equal(t, int64(3), Integer(3).Int)

	require.True(t, Boolean(true).Bool)
	require.Equal(t, KindBoolean, Boolean(false).Kind)

	require.Equal(t, 1.5, DoubleValue(1.5).Double)
	require.Equal(t, "hi", String("hi").Str)
	require.Equal(t, []byte{1, 2}, Binary([]byte{1, 2}).Bin)
}

func TestArrayOfNeverNilButEmpty(t *testing.T) {
	v := ArrayOf(KindInteger, nil)
	require.True(t, v.IsArray())
	require.Empty(t, v.Array)
}

func TestStructValueOrdersByInsertion(t *testing.T) {
	v := StructValue([]FieldValue{
		{Tag: 3, Value: Integer(1)},
		{Tag: 0, Value: Integer(2)},
	})
	require.Equal(t, 3, v.Struct[0].Tag)
	require.Equal(t, 0, v.Struct[1].Tag)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "integer", KindInteger.String())
	require.Equal(t, "struct", KindStruct.String())
	require.Contains(t, Kind(99).String(), "99")
}
