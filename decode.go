package sproto

import "math"

// DecodeRecord decodes bytes encoded by EncodeRecord against Type t,
// resolving each present header tag by direct index or binary search.
func DecodeRecord(t *Type, data []byte, limits Limits) (v Value, err error) {
	defer func() {
		if rc := recover(); rc != nil {
			v, err = Value{}, wrapf(ErrMalformedPayload, "panic during decode: %v", rc)
		}
	}()
	r := NewReader(data)
	return decodeRecord(t, &r, 0, limits)
}

// decodeRecord decodes t's full body from r and requires every byte of r to
// be consumed — the shape used for top-level records and nested struct
// fields, which are always handed an exactly-sized slice.
func decodeRecord(t *Type, r *Reader, depth int, limits Limits) (Value, error) {
	v, err := decodeRecordBody(t, r, depth, limits)
	if err != nil {
		return Value{}, err
	}
	if r.BytesLeft() > 0 {
		return Value{}, wrapf(ErrMalformedPayload, "%d trailing bytes after record body", r.BytesLeft())
	}
	return v, nil
}

// decodeRecordBody decodes t's body from r but leaves any trailing bytes in
// r untouched — used by the RPC host (C7), which decodes the package type
// as a prefix of a larger unpacked buffer and needs to know exactly how many
// bytes it consumed (r.Position()) so it can slice the remainder off as
// payload, and which decodes that payload the same way because Unpack may
// leave zero padding after it.
func decodeRecordBody(t *Type, r *Reader, depth int, limits Limits) (Value, error) {
	if depth > limits.maxDepth() {
		return Value{}, wrapf(ErrTooDeep, "struct nesting exceeds depth %d", limits.maxDepth())
	}

	slots, err := readHeaderSlots(r)
	if err != nil {
		return Value{}, err
	}

	fields := make([]FieldValue, 0, len(slots))

	for _, slot := range slots {
		f := t.fieldByTag(slot.Tag)
		if f == nil {
			// Unknown field (schema evolved since this decoder's catalogue was
			// built): skip it, for forward compatibility.
			if slot.Value == -1 {
				if err := r.SkipLengthPrefixed(); err != nil {
					return Value{}, wrapf(ErrMalformedPayload, "skipping unknown tag %d: %v", slot.Tag, err)
				}
			}
			continue
		}

		var fv Value
		var err error

		if f.IsArray {
			if slot.Value != -1 {
				return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): array field encoded inline", f.Name, f.Tag)
			}
			body, rerr := r.ReadLengthPrefixed()
			if rerr != nil {
				return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): %v", f.Name, f.Tag, rerr)
			}
			fv, err = decodeArrayBody(f, body, depth, limits)
		} else if slot.Value >= 0 {
			fv, err = decodeInlineScalar(f, slot.Value)
		} else {
			body, rerr := r.ReadLengthPrefixed()
			if rerr != nil {
				return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): %v", f.Name, f.Tag, rerr)
			}
			fv, err = decodeScalarBody(f, body, depth, limits)
		}

		if err != nil {
			return Value{}, err
		}

		fields = append(fields, FieldValue{Tag: f.Tag, Value: fv})
	}

	return StructValue(fields), nil
}

func decodeInlineScalar(f *FieldDescriptor, raw int) (Value, error) {
	switch f.Type {
	case KindInteger:
		return integerWithScale(f, int64(raw)), nil
	case KindBoolean:
		if raw != 0 && raw != 1 {
			return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): invalid boolean inline value %d", f.Name, f.Tag, raw)
		}
		return Boolean(raw == 1), nil
	default:
		return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): type %v cannot be inlined", f.Name, f.Tag, f.Type)
	}
}

func integerWithScale(f *FieldDescriptor, raw int64) Value {
	if scale := f.Scale(); scale > 1 {
		return DoubleValue(float64(raw) / float64(scale))
	}
	return Integer(raw)
}

func decodeScalarBody(f *FieldDescriptor, body []byte, depth int, limits Limits) (Value, error) {
	switch f.Type {
	case KindInteger:
		raw, err := readIntBody(body)
		if err != nil {
			return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): %v", f.Name, f.Tag, err)
		}
		return integerWithScale(f, raw), nil

	case KindBoolean:
		if len(body) != 1 {
			return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): invalid boolean body length %d", f.Name, f.Tag, len(body))
		}
		return Boolean(body[0] != 0), nil

	case KindDouble:
		if len(body) != 8 {
			return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): invalid double body length %d", f.Name, f.Tag, len(body))
		}
		return DoubleValue(math.Float64frombits(leU64(body))), nil

	case KindString:
		if err := limits.checkStringLen(len(body)); err != nil {
			return Value{}, err
		}
		if f.IsBinary() {
			return Binary(append([]byte(nil), body...)), nil
		}
		return String(string(body)), nil

	case KindStruct:
		if f.SubType == nil {
			return Value{}, wrapf(ErrMalformedSchema, "field %q (tag %d): struct field has no subtype", f.Name, f.Tag)
		}
		nr := NewReader(body)
		return decodeRecord(f.SubType, &nr, depth+1, limits)

	default:
		return Value{}, wrapf(ErrMalformedSchema, "field %q (tag %d): unknown field type %v", f.Name, f.Tag, f.Type)
	}
}

func decodeArrayBody(f *FieldDescriptor, body []byte, depth int, limits Limits) (Value, error) {
	switch f.Type {
	case KindInteger:
		ints, err := decodeIntArrayBody(body)
		if err != nil {
			return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): %v", f.Name, f.Tag, err)
		}
		if err := limits.checkArrayLen(len(ints)); err != nil {
			return Value{}, err
		}
		items := make([]Value, len(ints))
		for i, v := range ints {
			items[i] = integerWithScale(f, v)
		}
		return ArrayOf(KindInteger, items), nil

	case KindBoolean:
		if err := limits.checkArrayLen(len(body)); err != nil {
			return Value{}, err
		}
		bools := decodeBoolArrayBody(body)
		items := make([]Value, len(bools))
		for i, v := range bools {
			items[i] = Boolean(v)
		}
		return ArrayOf(KindBoolean, items), nil

	case KindDouble:
		if len(body)%8 != 0 {
			return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): double array body length %d not a multiple of 8", f.Name, f.Tag, len(body))
		}
		n := len(body) / 8
		if err := limits.checkArrayLen(n); err != nil {
			return Value{}, err
		}
		items := make([]Value, n)
		for i := 0; i < n; i++ {
			items[i] = DoubleValue(math.Float64frombits(leU64(body[i*8 : i*8+8])))
		}
		return ArrayOf(KindDouble, items), nil

	case KindString:
		r := NewReader(body)
		var items []Value
		for r.BytesLeft() > 0 {
			elem, err := r.ReadLengthPrefixed()
			if err != nil {
				return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): %v", f.Name, f.Tag, err)
			}
			if err := limits.checkStringLen(len(elem)); err != nil {
				return Value{}, err
			}
			if f.IsBinary() {
				items = append(items, Binary(append([]byte(nil), elem...)))
			} else {
				items = append(items, String(string(elem)))
			}
			if err := limits.checkArrayLen(len(items)); err != nil {
				return Value{}, err
			}
		}
		elemKind := KindString
		if f.IsBinary() {
			elemKind = KindBinary
		}
		return ArrayOf(elemKind, items), nil

	case KindStruct:
		if f.SubType == nil {
			return Value{}, wrapf(ErrMalformedSchema, "field %q (tag %d): struct array field has no subtype", f.Name, f.Tag)
		}
		r := NewReader(body)
		var items []Value
		for r.BytesLeft() > 0 {
			elem, err := r.ReadLengthPrefixed()
			if err != nil {
				return Value{}, wrapf(ErrMalformedPayload, "field %q (tag %d): %v", f.Name, f.Tag, err)
			}
			nr := NewReader(elem)
			v, err := decodeRecord(f.SubType, &nr, depth+1, limits)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
			if err := limits.checkArrayLen(len(items)); err != nil {
				return Value{}, err
			}
		}
		return ArrayOf(KindStruct, items), nil

	default:
		return Value{}, wrapf(ErrMalformedSchema, "field %q (tag %d): unknown array element type %v", f.Name, f.Tag, f.Type)
	}
}
