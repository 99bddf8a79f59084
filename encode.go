package sproto

import "math"

// EncodeRecord encodes v (which must be a Kind==KindStruct Value) against
// Type t, producing the "header_count:u16 | header_entry[] | data..." body
// that makes up a record's wire representation.
func EncodeRecord(t *Type, v Value, limits Limits) (out []byte, err error) {
	defer func() {
		if rc := recover(); rc != nil {
			out, err = nil, wrapf(ErrMalformedPayload, "panic during encode: %v", rc)
		}
	}()
	return encodeRecord(t, v, 0, limits)
}

func encodeRecord(t *Type, v Value, depth int, limits Limits) ([]byte, error) {
	if depth > limits.maxDepth() {
		return nil, wrapf(ErrTooDeep, "struct nesting exceeds depth %d", limits.maxDepth())
	}
	if v.Kind != KindStruct {
		return nil, wrapf(ErrTypeMismatch, "expected struct value for type %q, got %s", t.Name, v.Kind)
	}

	header := Buffer{}
	data := Buffer{}
	lastEmittedTag := -1

	for i := range t.Fields {
		f := &t.Fields[i]

		fv, present := lookupField(v.Struct, f.Tag)
		if !present {
			continue
		}

		if err := appendTagGap(&header, lastEmittedTag, f.Tag); err != nil {
			return nil, err
		}

		if f.IsArray {
			if !fv.IsArray() {
				return nil, wrapf(ErrTypeMismatch, "field %q (tag %d): expected array", f.Name, f.Tag)
			}
			body, err := encodeArrayBody(f, fv, depth, limits)
			if err != nil {
				return nil, err
			}
			appendDataSlot(&header)
			data.AppendLengthPrefixed(body)
		} else {
			if err := encodeScalarField(f, fv, depth, limits, &header, &data); err != nil {
				return nil, err
			}
		}

		lastEmittedTag = f.Tag
	}

	headerCount := header.Len() / 2
	if headerCount > 0xFFFF {
		return nil, wrapf(ErrEncodingOverflow, "header entry count %d exceeds 16 bits", headerCount)
	}

	out := &Buffer{}
	out.AppendU16(uint16(headerCount))
	out.AppendRaw(header.Bytes)
	out.AppendRaw(data.Bytes)
	return out.Bytes, nil
}

// encodeScalarField encodes one non-array field, writing either an inline
// header slot or a header-slot-0 plus data-area body.
func encodeScalarField(f *FieldDescriptor, fv Value, depth int, limits Limits, header, data *Buffer) error {
	switch f.Type {
	case KindInteger:
		raw, err := scaledIntFromValue(f, fv)
		if err != nil {
			return err
		}
		if raw >= 0 && raw <= maxInlineValue {
			appendInlineValue(header, int(raw))
		} else {
			body := &Buffer{}
			appendIntBody(body, raw)
			appendDataSlot(header)
			data.AppendLengthPrefixed(body.Bytes)
		}

	case KindBoolean:
		if fv.Kind != KindBoolean {
			return wrapf(ErrTypeMismatch, "field %q (tag %d): expected boolean", f.Name, f.Tag)
		}
		if fv.Bool {
			appendInlineValue(header, 1)
		} else {
			appendInlineValue(header, 0)
		}

	case KindDouble:
		if fv.Kind != KindDouble {
			return wrapf(ErrTypeMismatch, "field %q (tag %d): expected double", f.Name, f.Tag)
		}
		body := &Buffer{}
		body.AppendU64(math.Float64bits(fv.Double))
		appendDataSlot(header)
		data.AppendLengthPrefixed(body.Bytes)

	case KindString:
		raw, err := stringBytesFromValue(f, fv)
		if err != nil {
			return err
		}
		appendDataSlot(header)
		data.AppendLengthPrefixed(raw)

	case KindStruct:
		if fv.Kind != KindStruct {
			return wrapf(ErrTypeMismatch, "field %q (tag %d): expected struct", f.Name, f.Tag)
		}
		if f.SubType == nil {
			return wrapf(ErrMalformedSchema, "field %q (tag %d): struct field has no subtype", f.Name, f.Tag)
		}
		nested, err := encodeRecord(f.SubType, fv, depth+1, limits)
		if err != nil {
			return err
		}
		appendDataSlot(header)
		data.AppendLengthPrefixed(nested)

	default:
		return wrapf(ErrMalformedSchema, "field %q (tag %d): unknown field type %v", f.Name, f.Tag, f.Type)
	}

	return nil
}

// scaledIntFromValue resolves the wire-level integer for an INTEGER field,
// applying fixed-point scaling: a scaled field (Extra > 0) takes its
// logical value from a KindDouble Value, multiplies by 10^Extra,
// and rounds half away from zero; an unscaled field takes a KindInteger
// Value directly.
func scaledIntFromValue(f *FieldDescriptor, fv Value) (int64, error) {
	scale := f.Scale()
	if scale == 1 {
		if fv.Kind != KindInteger {
			return 0, wrapf(ErrTypeMismatch, "field %q (tag %d): expected integer", f.Name, f.Tag)
		}
		return fv.Int, nil
	}

	var logical float64
	switch fv.Kind {
	case KindDouble:
		logical = fv.Double
	case KindInteger:
		logical = float64(fv.Int)
	default:
		return 0, wrapf(ErrTypeMismatch, "field %q (tag %d): expected scaled numeric value", f.Name, f.Tag)
	}

	return roundHalfAwayFromZero(logical * float64(scale)), nil
}

func roundHalfAwayFromZero(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}

// stringBytesFromValue resolves the raw bytes for a STRING field, which may
// carry UTF-8 text or opaque binary depending on f.IsBinary().
func stringBytesFromValue(f *FieldDescriptor, fv Value) ([]byte, error) {
	if f.IsBinary() {
		if fv.Kind != KindBinary {
			return nil, wrapf(ErrTypeMismatch, "field %q (tag %d): expected binary", f.Name, f.Tag)
		}
		return fv.Bin, nil
	}
	if fv.Kind != KindString {
		return nil, wrapf(ErrTypeMismatch, "field %q (tag %d): expected string", f.Name, f.Tag)
	}
	return []byte(fv.Str), nil
}

// encodeArrayBody dispatches array-body encoding by element kind.
func encodeArrayBody(f *FieldDescriptor, fv Value, depth int, limits Limits) ([]byte, error) {
	if err := limits.checkArrayLen(len(fv.Array)); err != nil {
		return nil, err
	}

	switch f.Type {
	case KindInteger:
		ints := make([]int64, len(fv.Array))
		for i, e := range fv.Array {
			v, err := scaledIntFromValue(f, e)
			if err != nil {
				return nil, err
			}
			ints[i] = v
		}
		return encodeIntArrayBody(ints), nil

	case KindBoolean:
		bools := make([]bool, len(fv.Array))
		for i, e := range fv.Array {
			if e.Kind != KindBoolean {
				return nil, wrapf(ErrTypeMismatch, "field %q (tag %d): array element %d not boolean", f.Name, f.Tag, i)
			}
			bools[i] = e.Bool
		}
		return encodeBoolArrayBody(bools), nil

	case KindDouble:
		out := make([]byte, 0, len(fv.Array)*8)
		for i, e := range fv.Array {
			if e.Kind != KindDouble {
				return nil, wrapf(ErrTypeMismatch, "field %q (tag %d): array element %d not double", f.Name, f.Tag, i)
			}
			out = appendLE64(out, math.Float64bits(e.Double))
		}
		return out, nil

	case KindString:
		buf := &Buffer{}
		for i, e := range fv.Array {
			raw, err := stringBytesFromValue(f, e)
			if err != nil {
				return nil, wrapf(ErrTypeMismatch, "field %q (tag %d): array element %d: %v", f.Name, f.Tag, i, err)
			}
			if err := limits.checkStringLen(len(raw)); err != nil {
				return nil, err
			}
			buf.AppendLengthPrefixed(raw)
		}
		return buf.Bytes, nil

	case KindStruct:
		if f.SubType == nil {
			return nil, wrapf(ErrMalformedSchema, "field %q (tag %d): struct array field has no subtype", f.Name, f.Tag)
		}
		buf := &Buffer{}
		for i, e := range fv.Array {
			nested, err := encodeRecord(f.SubType, e, depth+1, limits)
			if err != nil {
				return nil, wrapf(ErrTypeMismatch, "field %q (tag %d): array element %d: %v", f.Name, f.Tag, i, err)
			}
			buf.AppendLengthPrefixed(nested)
		}
		return buf.Bytes, nil

	default:
		return nil, wrapf(ErrMalformedSchema, "field %q (tag %d): unknown array element type %v", f.Name, f.Tag, f.Type)
	}
}

// lookupField finds tag within an ordered struct field list.
func lookupField(fields []FieldValue, tag int) (Value, bool) {
	for _, fv := range fields {
		if fv.Tag == tag {
			return fv.Value, true
		}
	}
	return Value{}, false
}
