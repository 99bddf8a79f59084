package sproto

import "sync"

// Catalogue is the immutable, read-only type/protocol index produced by
// parsing a bundle (C2) and queried by the record codec (C4/C5) and the RPC
// host (C7). Once built it is safe for concurrent readers without further
// synchronisation; the caches below are the only mutable state,
// and they're append-only memoisations guarded by their own mutex so a
// Catalogue can still be shared across goroutines.
type Catalogue struct {
	types     []Type
	protocols []Protocol // sorted by Tag ascending

	raw []byte // original bundle bytes, retained for Fingerprint (C8)

	mu          sync.Mutex
	typeByName  map[string]*Type
	protoByName map[string]*Protocol
}

// NewCatalogue builds a Catalogue directly from already-resolved types and
// protocols, bypassing bundle parsing. This is how tests and example code
// construct a schema without hand-encoding a bundle byte stream; ParseBundle
// is the only path that computes a meaningful Fingerprint, since raw is nil
// here.
func NewCatalogue(types []Type, protocols []Protocol) *Catalogue {
	return &Catalogue{types: types, protocols: protocols}
}

// Types returns the catalogue's type list in bundle order.
func (c *Catalogue) Types() []Type { return c.types }

// Protocols returns the catalogue's protocol list, sorted by tag.
func (c *Catalogue) Protocols() []Protocol { return c.protocols }

// TypeByName resolves a type by name. The result is memoised after the
// first lookup: callers that resolve the same name repeatedly (NewHost and
// WithPackageType for each Host) pay the linear scan once.
func (c *Catalogue) TypeByName(name string) (*Type, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.typeByName == nil {
		c.typeByName = make(map[string]*Type, len(c.types))
	}
	if t, ok := c.typeByName[name]; ok {
		return t, true
	}
	for i := range c.types {
		if c.types[i].Name == name {
			c.typeByName[name] = &c.types[i]
			return &c.types[i], true
		}
	}
	return nil, false
}

// TypeByID resolves a type by its bundle index.
func (c *Catalogue) TypeByID(id int) (*Type, bool) {
	if id < 0 || id >= len(c.types) {
		return nil, false
	}
	return &c.types[id], true
}

// ProtocolByName resolves a protocol by name. Binary search isn't applicable
// here (protocols are sorted by tag, not name), so this falls back to a
// memoised linear scan.
func (c *Catalogue) ProtocolByName(name string) (*Protocol, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.protoByName == nil {
		c.protoByName = make(map[string]*Protocol, len(c.protocols))
	}
	if p, ok := c.protoByName[name]; ok {
		return p, true
	}
	for i := range c.protocols {
		if c.protocols[i].Name == name {
			c.protoByName[name] = &c.protocols[i]
			return &c.protocols[i], true
		}
	}
	return nil, false
}

// ProtocolByTag resolves a protocol by tag via binary search over the
// sorted protocol list.
func (c *Catalogue) ProtocolByTag(tag int) (*Protocol, bool) {
	lo, hi := 0, len(c.protocols)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case c.protocols[mid].Tag == tag:
			return &c.protocols[mid], true
		case c.protocols[mid].Tag < tag:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return nil, false
}
