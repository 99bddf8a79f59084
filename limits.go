package sproto

// Limits configures bounds checking during bundle parsing and record decoding,
// so a malformed or hostile payload can't force unbounded allocation or
// recursion.
type Limits struct {
	MaxDepth      int // maximum struct nesting depth (0 = use the hard cap of 64)
	MaxArrayLen   int // maximum element count accepted for any one array body (0 = unlimited)
	MaxStringLen  int // maximum byte length accepted for a string/binary body (0 = unlimited)
	MaxSchemaSize int // maximum total bundle size in bytes accepted by the parser (0 = unlimited)
}

// hardMaxDepth is the absolute recursion ceiling: exceeding it is always
// TooDeep, regardless of Limits.MaxDepth.
const hardMaxDepth = 64

// DefaultLimits provides sensible defaults for most use cases.
var DefaultLimits = Limits{
	MaxDepth:      hardMaxDepth,
	MaxArrayLen:   1_000_000,
	MaxStringLen:  64 * 1024 * 1024,
	MaxSchemaSize: 16 * 1024 * 1024,
}

func (l Limits) maxDepth() int {
	if l.MaxDepth <= 0 || l.MaxDepth > hardMaxDepth {
		return hardMaxDepth
	}
	return l.MaxDepth
}

func (l Limits) checkArrayLen(n int) error {
	if l.MaxArrayLen > 0 && n > l.MaxArrayLen {
		return wrapf(ErrMalformedPayload, "array length %d exceeds limit %d", n, l.MaxArrayLen)
	}
	return nil
}

func (l Limits) checkStringLen(n int) error {
	if l.MaxStringLen > 0 && n > l.MaxStringLen {
		return wrapf(ErrMalformedPayload, "string length %d exceeds limit %d", n, l.MaxStringLen)
	}
	return nil
}

func (l Limits) checkSchemaSize(n int) error {
	if l.MaxSchemaSize > 0 && n > l.MaxSchemaSize {
		return wrapf(ErrMalformedSchema, "bundle size %d exceeds limit %d", n, l.MaxSchemaSize)
	}
	return nil
}
