package sproto

// FieldDescriptor describes one field of a Type.
type FieldDescriptor struct {
	Tag        int
	Type       Kind
	Name       string
	SubType    *Type // set iff Type == KindStruct
	Key        int   // main-index tag for array-of-struct fields, -1 if none
	Extra      int   // decimal scaling power, or binary-string marker (STRING)
	IsArray    bool
}

// Scale returns the fixed-point divisor implied by Extra for an INTEGER
// field, or 1 if the field isn't scaled.
func (f *FieldDescriptor) Scale() int64 {
	if f.Type != KindInteger || f.Extra <= 0 {
		return 1
	}
	scale := int64(1)
	for i := 0; i < f.Extra; i++ {
		scale *= 10
	}
	return scale
}

// IsBinary reports whether a STRING field carries opaque bytes rather than
// UTF-8 text: a non-zero Extra marks a binary string.
func (f *FieldDescriptor) IsBinary() bool {
	return f.Type == KindString && f.Extra != 0
}

// Type describes a record type: its sorted fields and whether they form a
// dense, directly-indexable tag run.
type Type struct {
	Name   string
	Fields []FieldDescriptor // sorted by Tag ascending
	Base   int               // fields[0].Tag iff the tag set is contiguous, else -1
	MaxN   int               // effective field count including implicit gaps (not read by the encoder)
}

// fieldByTag resolves a field by its tag, using direct indexing when the
// type's tags are dense and a binary search otherwise.
func (t *Type) fieldByTag(tag int) *FieldDescriptor {
	if t.Base >= 0 {
		idx := tag - t.Base
		if idx < 0 || idx >= len(t.Fields) {
			return nil
		}
		f := &t.Fields[idx]
		if f.Tag != tag {
			return nil
		}
		return f
	}

	lo, hi := 0, len(t.Fields)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case t.Fields[mid].Tag == tag:
			return &t.Fields[mid]
		case t.Fields[mid].Tag < tag:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return nil
}

// computeBase determines Type.Base: fields[0].Tag if the tag sequence is
// dense (every integer from fields[0].Tag to fields[n-1].Tag present), else
// -1. Assumes fields is already sorted ascending by Tag.
func computeBase(fields []FieldDescriptor) int {
	if len(fields) == 0 {
		return -1
	}
	base := fields[0].Tag
	for i, f := range fields {
		if f.Tag != base+i {
			return -1
		}
	}
	return base
}

// Protocol describes one RPC protocol entry.
type Protocol struct {
	Name     string
	Tag      int
	Request  *Type // nil if the protocol takes no request body
	Response *Type // nil if the protocol has no response body
	Confirm  int   // non-zero marks a confirm-only (bodiless) response
}

// Responded reports whether a response (possibly bodiless) is expected for
// this protocol.
func (p *Protocol) Responded() bool {
	return p.Response != nil || p.Confirm != 0
}
