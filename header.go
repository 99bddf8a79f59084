package sproto

// headerSlot is one value-bearing entry from a record/struct header, after
// tag-gap markers have been resolved into an absolute tag.
type headerSlot struct {
	Tag   int
	Value int // entry/2 - 1; callers decide whether this is an inline value
	// (non-negative, use directly) or a sentinel meaning "read a
	// length-prefixed body from the data region next" (Value == -1, header word 0).
}

// readHeaderSlots parses the "header_count:u16 | header_entry[header_count]:u16"
// prefix of any struct body (records and the bundle's own outer/meta structs
// all share this shape) into an ordered list of present tags and their
// decoded header word.
func readHeaderSlots(r *Reader) ([]headerSlot, error) {
	count, err := r.ReadU16()
	if err != nil {
		return nil, wrapf(ErrMalformedPayload, "reading header count: %v", err)
	}

	slots := make([]headerSlot, 0, count)
	currentTag := -1

	for i := 0; i < int(count); i++ {
		word, err := r.ReadU16()
		if err != nil {
			return nil, wrapf(ErrMalformedPayload, "reading header entry %d: %v", i, err)
		}

		currentTag++ // always increment first

		if word&1 == 1 {
			// tag-gap marker: (gap-1)*2+1
			gap := int(word-1) / 2
			currentTag += gap
			continue
		}

		value := int(word)/2 - 1 // -1 signals "data region follows"
		slots = append(slots, headerSlot{Tag: currentTag, Value: value})
	}

	return slots, nil
}

// appendTagGap emits, if needed, a tag-gap marker advancing from
// lastEmittedTag to just before tag.
func appendTagGap(b *Buffer, lastEmittedTag, tag int) error {
	gap := tag - lastEmittedTag - 1
	if gap <= 0 {
		return nil
	}
	marker := (gap-1)*2 + 1
	if marker > 0xFFFF {
		return wrapf(ErrEncodingOverflow, "tag gap %d does not fit in 16 bits", gap)
	}
	b.AppendU16(uint16(marker))
	return nil
}

// appendInlineValue emits an even header word inlining a small non-negative
// value (the value slot holds 2*(v+1)).
func appendInlineValue(b *Buffer, v int) {
	b.AppendU16(uint16(2 * (v + 1)))
}

// appendDataSlot emits the header word 0, meaning "the value lives in the
// data area next".
func appendDataSlot(b *Buffer) {
	b.AppendU16(0)
}

// maxInlineValue is the largest value [0, 0x7FFE] the header can inline.
const maxInlineValue = 0x7FFE
