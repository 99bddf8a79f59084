package sproto

import "fmt"

// Kind identifies the dynamic shape carried by a Value: one of the five
// field types a record field can hold, plus KindBinary for opaque binary
// strings. Arrays are not a distinct kind: an array Value carries a non-nil
// Array and its element kind in Elem (see Value.IsArray).
type Kind uint8

const (
	KindInteger Kind = iota
	KindBoolean
	KindDouble
	KindString
	KindBinary
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is the dynamic variant the encoder and decoder are written against.
// Application code converts from/to native records by hand-written glue;
// this codec never uses reflection.
//
// Exactly one of the scalar fields is meaningful for a given Kind, except
// when Array is non-nil: the Value then holds a homogeneous ordered
// sequence of elements of kind Elem, and the scalar fields below are
// ignored.
type Value struct {
	Kind Kind

	Int    int64
	Bool   bool
	Double float64
	Str    string
	Bin    []byte
	Struct []FieldValue // ordered by ascending Tag; see field.go

	Array []Value // non-nil (possibly empty) iff this Value is an array
	Elem  Kind    // element kind, meaningful only when Array != nil
}

// FieldValue pairs a struct field's tag with its value. Struct is
// represented as an ordered slice rather than a map so the encoder never has
// to sort before walking fields in ascending tag order.
type FieldValue struct {
	Tag   int
	Value Value
}

// IsArray reports whether v holds an array rather than a scalar/struct.
func (v Value) IsArray() bool { return v.Array != nil }

// Integer constructs an integer Value.
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }

// Boolean constructs a boolean Value.
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// DoubleValue constructs a double Value.
func DoubleValue(f float64) Value { return Value{Kind: KindDouble, Double: f} }

// String constructs a UTF-8 string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Binary constructs an opaque binary Value.
func Binary(b []byte) Value { return Value{Kind: KindBinary, Bin: b} }

// StructValue constructs a struct Value from its ordered fields.
func StructValue(fields []FieldValue) Value {
	return Value{Kind: KindStruct, Struct: fields}
}

// ArrayOf constructs an array Value over a homogeneous element kind.
func ArrayOf(elem Kind, items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Array: items, Elem: elem}
}
