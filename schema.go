package sproto

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the 4-byte frame magic number klauspost/compress/zstd (and
// every other zstd implementation) writes at the start of a compressed
// stream. LoadBundleReader sniffs it to decide whether to decompress.
var zstdMagic = [4]byte{0x28, 0xB5, 0x2F, 0xFD}

// ParseBundle parses a precompiled schema bundle into a read-only Catalogue.
// It walks the bundle's outer struct (a types array at tag 0, a protocols
// array at tag 1, each optional) and materialises the type and protocol
// catalogues.
func ParseBundle(data []byte, limits Limits) (cat *Catalogue, err error) {
	defer func() {
		if rc := recover(); rc != nil {
			cat, err = nil, wrapf(ErrMalformedSchema, "panic during bundle parse: %v", rc)
		}
	}()

	if err := limits.checkSchemaSize(len(data)); err != nil {
		return nil, err
	}

	r := NewReader(data)
	slots, err := readHeaderSlots(&r)
	if err != nil {
		return nil, wrapf(ErrMalformedSchema, "bundle header: %v", err)
	}

	var typesRaw, protocolsRaw [][]byte

	for _, slot := range slots {
		if slot.Value != -1 {
			return nil, wrapf(ErrMalformedSchema, "bundle tag %d encoded inline", slot.Tag)
		}
		body, err := r.ReadLengthPrefixed()
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "bundle tag %d: %v", slot.Tag, err)
		}

		switch slot.Tag {
		case 0:
			typesRaw, err = readCountPrefixedChildren(body)
		case 1:
			protocolsRaw, err = readCountPrefixedChildren(body)
		default:
			return nil, wrapf(ErrMalformedSchema, "unknown bundle meta-tag %d", slot.Tag)
		}
		if err != nil {
			return nil, err
		}
	}

	if r.BytesLeft() > 0 {
		return nil, wrapf(ErrMalformedSchema, "%d trailing bytes after bundle", r.BytesLeft())
	}

	// Pass 1: allocate the type slice up front so subtype references taken in
	// pass 2 (possibly forward references) resolve to stable addresses.
	types := make([]Type, len(typesRaw))
	fieldChildren := make([][][]byte, len(typesRaw))
	for i, raw := range typesRaw {
		name, children, err := parseTypeShell(raw)
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "type %d: %v", i, err)
		}
		types[i].Name = name
		fieldChildren[i] = children
	}

	// Pass 2: parse fields now that every Type has a stable address.
	for i := range types {
		fields, err := parseFields(fieldChildren[i], types, limits)
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "type %q: %v", types[i].Name, err)
		}
		types[i].Fields = fields
		types[i].Base = computeBase(fields)
		types[i].MaxN = computeMaxN(fields)
	}

	protocols := make([]Protocol, len(protocolsRaw))
	prevTag := -1
	for i, raw := range protocolsRaw {
		p, err := parseProtocol(raw, types, prevTag)
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "protocol %d: %v", i, err)
		}
		if p.Tag <= prevTag {
			return nil, wrapf(ErrMalformedSchema, "protocol %q: non-monotonic tag %d", p.Name, p.Tag)
		}
		protocols[i] = p
		prevTag = p.Tag
	}

	return &Catalogue{
		types:     types,
		protocols: protocols,
		raw:       append([]byte(nil), data...),
	}, nil
}

// LoadBundle is an alias for ParseBundle using DefaultLimits, for the common
// case of loading a trusted, locally-built bundle.
func LoadBundle(data []byte) (*Catalogue, error) {
	return ParseBundle(data, DefaultLimits)
}

// LoadBundleReader reads a bundle from r, transparently decompressing it
// first if it's zstd-compressed. Plain (uncompressed) bundles parse exactly
// as before.
func LoadBundleReader(r io.Reader, limits Limits) (*Catalogue, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapf(ErrMalformedSchema, "reading bundle: %v", err)
	}

	if len(raw) >= 4 && bytes.Equal(raw[:4], zstdMagic[:]) {
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "opening zstd bundle: %v", err)
		}
		defer dec.Close()

		raw, err = io.ReadAll(dec)
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "decompressing zstd bundle: %v", err)
		}
	}

	return ParseBundle(raw, limits)
}

// readCountPrefixedChildren reads the bundle's own "count:u32 | child[count]"
// array shape, distinct from the generic count-less array body used by
// ordinary record fields: the bundle's top-level types/protocols arrays
// carry an explicit element count because they predate and sit outside the
// generic record codec.
func readCountPrefixedChildren(body []byte) ([][]byte, error) {
	r := NewReader(body)
	count, err := r.ReadU32()
	if err != nil {
		return nil, wrapf(ErrMalformedSchema, "reading child count: %v", err)
	}

	children := make([][]byte, 0, count)
	for i := 0; i < int(count); i++ {
		child, err := r.ReadLengthPrefixed()
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "reading child %d: %v", i, err)
		}
		children = append(children, child)
	}

	if r.BytesLeft() > 0 {
		return nil, wrapf(ErrMalformedSchema, "%d trailing bytes after child array", r.BytesLeft())
	}
	return children, nil
}

// readStructArrayChildren reads the generic struct-array body (a sequence of
// len:u32 | bytes children, no leading count) used for a type's nested
// field array, which — unlike the bundle's own top-level arrays — is
// encoded by the same generic array-body format ordinary record STRUCT
// arrays use.
func readStructArrayChildren(body []byte) ([][]byte, error) {
	r := NewReader(body)
	var children [][]byte
	for r.BytesLeft() > 0 {
		child, err := r.ReadLengthPrefixed()
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "reading struct array child: %v", err)
		}
		children = append(children, child)
	}
	return children, nil
}

// parseTypeShell parses a type child's name (meta-tag 0) and its raw,
// not-yet-interpreted field children (meta-tag 1).
func parseTypeShell(raw []byte) (string, [][]byte, error) {
	r := NewReader(raw)
	slots, err := readHeaderSlots(&r)
	if err != nil {
		return "", nil, err
	}

	var name string
	var children [][]byte

	for _, slot := range slots {
		if slot.Value != -1 {
			return "", nil, wrapf(ErrMalformedSchema, "type meta-tag %d encoded inline", slot.Tag)
		}
		body, err := r.ReadLengthPrefixed()
		if err != nil {
			return "", nil, err
		}

		switch slot.Tag {
		case 0:
			name = string(body)
		case 1:
			children, err = readStructArrayChildren(body)
			if err != nil {
				return "", nil, err
			}
		default:
			return "", nil, wrapf(ErrMalformedSchema, "unknown type meta-tag %d", slot.Tag)
		}
	}

	if r.BytesLeft() > 0 {
		return "", nil, wrapf(ErrMalformedSchema, "%d trailing bytes after type", r.BytesLeft())
	}
	return name, children, nil
}

// parseFields parses every field child of a type, validating the strictly
// ascending tag order invariant.
func parseFields(raw [][]byte, types []Type, limits Limits) ([]FieldDescriptor, error) {
	fields := make([]FieldDescriptor, 0, len(raw))
	lastTag := -1

	for i, child := range raw {
		f, err := parseOneField(child, types)
		if err != nil {
			return nil, wrapf(ErrMalformedSchema, "field %d: %v", i, err)
		}
		if f.Tag <= lastTag {
			return nil, wrapf(ErrMalformedSchema, "field %q: non-monotonic tag %d", f.Name, f.Tag)
		}
		lastTag = f.Tag
		fields = append(fields, f)
	}

	return fields, nil
}

// readMetaInt decodes one integer meta-field, whether it was inlined in the
// header or deferred to the data region.
func readMetaInt(slot headerSlot, r *Reader) (int64, error) {
	if slot.Value != -1 {
		return int64(slot.Value), nil
	}
	body, err := r.ReadLengthPrefixed()
	if err != nil {
		return 0, err
	}
	return readIntBody(body)
}

// parseOneField parses a single field child of a type's meta-schema.
// Meta-tag 1 ("type-code") uses 0..3 for the four basic types and 4 for
// STRUCT, at which point meta-tag 2 holds a subtype index into types rather
// than an "extra" scaling/binary marker — see DESIGN.md for the reasoning.
func parseOneField(raw []byte, types []Type) (FieldDescriptor, error) {
	r := NewReader(raw)
	slots, err := readHeaderSlots(&r)
	if err != nil {
		return FieldDescriptor{}, err
	}

	f := FieldDescriptor{Key: -1}
	haveTag, haveTypeCode, haveExtra := false, false, false
	var typeCode int
	var extraOrSubtype int

	for _, slot := range slots {
		switch slot.Tag {
		case 0:
			if slot.Value != -1 {
				return FieldDescriptor{}, wrapf(ErrMalformedSchema, "field name encoded inline")
			}
			body, err := r.ReadLengthPrefixed()
			if err != nil {
				return FieldDescriptor{}, err
			}
			f.Name = string(body)
		case 1:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return FieldDescriptor{}, err
			}
			typeCode, haveTypeCode = int(v), true
		case 2:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return FieldDescriptor{}, err
			}
			extraOrSubtype, haveExtra = int(v), true
		case 3:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return FieldDescriptor{}, err
			}
			f.Tag, haveTag = int(v), true
		case 4:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return FieldDescriptor{}, err
			}
			f.IsArray = v != 0
		case 5:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return FieldDescriptor{}, err
			}
			f.Key = int(v)
		default:
			return FieldDescriptor{}, wrapf(ErrMalformedSchema, "unknown field meta-tag %d", slot.Tag)
		}
	}

	if r.BytesLeft() > 0 {
		return FieldDescriptor{}, wrapf(ErrMalformedSchema, "%d trailing bytes after field", r.BytesLeft())
	}
	if !haveTag {
		return FieldDescriptor{}, wrapf(ErrMalformedSchema, "field missing tag (meta-tag 3)")
	}
	if !haveTypeCode {
		return FieldDescriptor{}, wrapf(ErrMalformedSchema, "field missing type-code (meta-tag 1)")
	}

	switch typeCode {
	case 0:
		f.Type = KindInteger
	case 1:
		f.Type = KindBoolean
	case 2:
		f.Type = KindString
	case 3:
		f.Type = KindDouble
	case 4:
		f.Type = KindStruct
		if !haveExtra {
			return FieldDescriptor{}, wrapf(ErrMalformedSchema, "struct field missing subtype (meta-tag 2)")
		}
		// Reject value >= len(types) as well as value < 0 — an off-by-one
		// here would let a field point one past the end of the type array.
		if extraOrSubtype < 0 || extraOrSubtype >= len(types) {
			return FieldDescriptor{}, wrapf(ErrMalformedSchema, "dangling subtype index %d (have %d types)", extraOrSubtype, len(types))
		}
		f.SubType = &types[extraOrSubtype]
	default:
		return FieldDescriptor{}, wrapf(ErrMalformedSchema, "unknown type-code %d", typeCode)
	}

	if f.Type != KindStruct && haveExtra {
		f.Extra = extraOrSubtype
	}

	return f, nil
}

// parseProtocol parses one protocol child. If the tag meta-field
// (meta-tag 1) is absent, the protocol's tag defaults to prevTag+1.
func parseProtocol(raw []byte, types []Type, prevTag int) (Protocol, error) {
	r := NewReader(raw)
	slots, err := readHeaderSlots(&r)
	if err != nil {
		return Protocol{}, err
	}

	p := Protocol{Tag: -1}
	haveReq, haveResp := false, false
	var reqIdx, respIdx int

	for _, slot := range slots {
		switch slot.Tag {
		case 0:
			if slot.Value != -1 {
				return Protocol{}, wrapf(ErrMalformedSchema, "protocol name encoded inline")
			}
			body, err := r.ReadLengthPrefixed()
			if err != nil {
				return Protocol{}, err
			}
			p.Name = string(body)
		case 1:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return Protocol{}, err
			}
			p.Tag = int(v)
		case 2:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return Protocol{}, err
			}
			reqIdx, haveReq = int(v), true
		case 3:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return Protocol{}, err
			}
			respIdx, haveResp = int(v), true
		case 4:
			v, err := readMetaInt(slot, &r)
			if err != nil {
				return Protocol{}, err
			}
			p.Confirm = int(v)
		default:
			return Protocol{}, wrapf(ErrMalformedSchema, "unknown protocol meta-tag %d", slot.Tag)
		}
	}

	if r.BytesLeft() > 0 {
		return Protocol{}, wrapf(ErrMalformedSchema, "%d trailing bytes after protocol", r.BytesLeft())
	}
	if p.Tag < 0 {
		p.Tag = prevTag + 1
	}

	if haveReq {
		if reqIdx < 0 || reqIdx >= len(types) {
			return Protocol{}, wrapf(ErrMalformedSchema, "dangling request type index %d (have %d types)", reqIdx, len(types))
		}
		p.Request = &types[reqIdx]
	}
	if haveResp {
		if respIdx < 0 || respIdx >= len(types) {
			return Protocol{}, wrapf(ErrMalformedSchema, "dangling response type index %d (have %d types)", respIdx, len(types))
		}
		p.Response = &types[respIdx]
	}

	return p, nil
}

// computeMaxN returns the effective field count including implicit gaps.
// It is stored on Type.MaxN; the encoder does not read it and grows its
// header buffer as it goes.
func computeMaxN(fields []FieldDescriptor) int {
	if len(fields) == 0 {
		return 0
	}
	return fields[len(fields)-1].Tag - fields[0].Tag + 1
}
