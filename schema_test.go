package sproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// metaEntry is a single data-area-or-inline header slot used to hand-build
// bundle byte streams in these tests, mirroring what a real schema compiler
// would emit.
type metaEntry struct {
	tag int
	i   *int64
	s   *string
	raw []byte
}

func intEntry(tag int, v int64) metaEntry    { return metaEntry{tag: tag, i: &v} }
func strEntry(tag int, v string) metaEntry   { return metaEntry{tag: tag, s: &v} }
func rawEntry(tag int, v []byte) metaEntry   { return metaEntry{tag: tag, raw: v} }

func buildMetaStruct(t *testing.T, entries []metaEntry) []byte {
	t.Helper()
	header := &Buffer{}
	data := &Buffer{}
	last := -1

	for _, e := range entries {
		require.NoError(t, appendTagGap(header, last, e.tag))

		switch {
		case e.s != nil:
			appendDataSlot(header)
			data.AppendLengthPrefixed([]byte(*e.s))
		case e.raw != nil:
			appendDataSlot(header)
			data.AppendLengthPrefixed(e.raw)
		default:
			v := *e.i
			if v >= 0 && v <= maxInlineValue {
				appendInlineValue(header, int(v))
			} else {
				body := &Buffer{}
				appendIntBody(body, v)
				appendDataSlot(header)
				data.AppendLengthPrefixed(body.Bytes)
			}
		}
		last = e.tag
	}

	out := &Buffer{}
	out.AppendU16(uint16(header.Len() / 2))
	out.AppendRaw(header.Bytes)
	out.AppendRaw(data.Bytes)
	return out.Bytes
}

// buildScalarField builds a field sub-schema for a plain (non-struct,
// non-array) field of the given basic type-code.
func buildScalarField(t *testing.T, name string, typeCode int64, fieldTag int64) []byte {
	t.Helper()
	return buildMetaStruct(t, []metaEntry{
		strEntry(0, name),
		intEntry(1, typeCode),
		intEntry(3, fieldTag),
	})
}

func buildStructArrayBody(t *testing.T, children [][]byte) []byte {
	t.Helper()
	buf := &Buffer{}
	for _, c := range children {
		buf.AppendLengthPrefixed(c)
	}
	return buf.Bytes
}

func buildType(t *testing.T, name string, fieldBytes [][]byte) []byte {
	t.Helper()
	entries := []metaEntry{strEntry(0, name)}
	if len(fieldBytes) > 0 {
		entries = append(entries, rawEntry(1, buildStructArrayBody(t, fieldBytes)))
	}
	return buildMetaStruct(t, entries)
}

func buildCountPrefixed(t *testing.T, children [][]byte) []byte {
	t.Helper()
	buf := &Buffer{}
	buf.AppendU32(uint32(len(children)))
	for _, c := range children {
		buf.AppendLengthPrefixed(c)
	}
	return buf.Bytes
}

func buildBundle(t *testing.T, types, protocols [][]byte) []byte {
	t.Helper()
	var entries []metaEntry
	if types != nil {
		entries = append(entries, rawEntry(0, buildCountPrefixed(t, types)))
	}
	if protocols != nil {
		entries = append(entries, rawEntry(1, buildCountPrefixed(t, protocols)))
	}
	return buildMetaStruct(t, entries)
}

func TestParseBundleBasic(t *testing.T) {
	xField := buildScalarField(t, "x", 0, 0)
	yField := buildScalarField(t, "y", 0, 1)
	pointType := buildType(t, "Point", [][]byte{xField, yField})

	echoProto := buildMetaStruct(t, []metaEntry{
		strEntry(0, "echo"),
		intEntry(1, 1), // tag
		intEntry(2, 0), // request type index
		intEntry(3, 0), // response type index
	})

	bundle := buildBundle(t, [][]byte{pointType}, [][]byte{echoProto})

	cat, err := ParseBundle(bundle, DefaultLimits)
	require.NoError(t, err)
	require.Len(t, cat.Types(), 1)
	require.Equal(t, "Point", cat.Types()[0].Name)
	require.Len(t, cat.Types()[0].Fields, 2)
	require.Equal(t, "x", cat.Types()[0].Fields[0].Name)
	require.Equal(t, "y", cat.Types()[0].Fields[1].Name)

	proto, ok := cat.ProtocolByName("echo")
	require.True(t, ok)
	require.Equal(t, 1, proto.Tag)
	require.Same(t, &cat.Types()[0], proto.Request)
	require.Same(t, &cat.Types()[0], proto.Response)

	// Round trip a Point value through the parsed type.
	v := StructValue([]FieldValue{
		{Tag: 0, Value: Integer(3)},
		{Tag: 1, Value: Integer(4)},
	})
	encoded, err := EncodeRecord(&cat.Types()[0], v, DefaultLimits)
	require.NoError(t, err)
	decoded, err := DecodeRecord(&cat.Types()[0], encoded, DefaultLimits)
	require.NoError(t, err)
	require.Equal(t, int64(3), decoded.Struct[0].Value.Int)
	require.Equal(t, int64(4), decoded.Struct[1].Value.Int)
}

func TestParseBundleImplicitProtocolTag(t *testing.T) {
	first := buildMetaStruct(t, []metaEntry{strEntry(0, "a"), intEntry(1, 5)})
	second := buildMetaStruct(t, []metaEntry{strEntry(0, "b")}) // no explicit tag

	bundle := buildBundle(t, nil, [][]byte{first, second})
	cat, err := ParseBundle(bundle, DefaultLimits)
	require.NoError(t, err)

	a, ok := cat.ProtocolByName("a")
	require.True(t, ok)
	require.Equal(t, 5, a.Tag)

	b, ok := cat.ProtocolByName("b")
	require.True(t, ok)
	require.Equal(t, 6, b.Tag)
}

func TestParseBundleNestedStructField(t *testing.T) {
	innerField := buildScalarField(t, "v", 1, 0) // boolean
	inner := buildType(t, "Inner", [][]byte{innerField})

	outerField := buildMetaStruct(t, []metaEntry{
		strEntry(0, "child"),
		intEntry(1, 4), // STRUCT
		intEntry(2, 0), // subtype index 0 == Inner
		intEntry(3, 0), // field tag
	})
	outer := buildType(t, "Outer", [][]byte{outerField})

	bundle := buildBundle(t, [][]byte{inner, outer}, nil)
	cat, err := ParseBundle(bundle, DefaultLimits)
	require.NoError(t, err)

	outerType, ok := cat.TypeByName("Outer")
	require.True(t, ok)
	require.NotNil(t, outerType.Fields[0].SubType)
	require.Equal(t, "Inner", outerType.Fields[0].SubType.Name)
}

func TestParseBundleRejectsDanglingSubtype(t *testing.T) {
	badField := buildMetaStruct(t, []metaEntry{
		strEntry(0, "child"),
		intEntry(1, 4), // STRUCT
		intEntry(2, 7), // dangling: no type at index 7
		intEntry(3, 0),
	})
	outer := buildType(t, "Outer", [][]byte{badField})

	bundle := buildBundle(t, [][]byte{outer}, nil)
	_, err := ParseBundle(bundle, DefaultLimits)
	require.ErrorIs(t, err, ErrMalformedSchema)
}

func TestParseBundleRejectsNonMonotonicFieldTags(t *testing.T) {
	f1 := buildScalarField(t, "b", 0, 5)
	f2 := buildScalarField(t, "a", 0, 2) // out of order
	typ := buildType(t, "Bad", [][]byte{f1, f2})

	bundle := buildBundle(t, [][]byte{typ}, nil)
	_, err := ParseBundle(bundle, DefaultLimits)
	require.ErrorIs(t, err, ErrMalformedSchema)
}

func TestParseBundleRejectsOversizeSchema(t *testing.T) {
	limits := DefaultLimits
	limits.MaxSchemaSize = 1
	_, err := ParseBundle(buildBundle(t, nil, nil), limits)
	require.ErrorIs(t, err, ErrMalformedSchema)
}
