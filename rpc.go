package sproto

import (
	"sync"

	"github.com/pierrec/lz4/v4"
)

// DispatchKind distinguishes a dispatched envelope as an inbound request or
// a resolved response.
type DispatchKind int

const (
	Request DispatchKind = iota
	Response
)

// Respond builds the framed response bytes for a request. It closes over
// the session and response type captured at dispatch time.
type Respond func(args Value) ([]byte, error)

// Dispatched is the result of Host.Dispatch.
type Dispatched struct {
	Kind         DispatchKind
	ProtocolName string
	Session      int64
	HasSession   bool
	Result       Value
	HasResult    bool
	Respond      Respond // set only for Kind == Request, when a response is expected
}

// Logger is the minimal hook Host uses to report session-table lifecycle
// events. It is never required — a Host built without WithLogger logs nothing — and
// the package imports no logging library of its own; passing a
// *log.Logger from the standard library satisfies this interface directly.
type Logger interface {
	Printf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

type sessionEntry struct {
	responseType *Type
	confirmOnly  bool
}

// Host is the RPC envelope/session layer (C7): it prepends a package header
// carrying the protocol tag and session id to routed payloads, and resolves
// responses against an outstanding-session table.
type Host struct {
	cat         *Catalogue
	limits      Limits
	packageType *Type

	mu       sync.Mutex
	sessions map[int64]sessionEntry

	sessionIDGen SessionIDGenerator
	logger       Logger

	frameCompression     bool
	frameCompressionMinN int
}

// HostOption configures a Host built with NewHost.
type HostOption func(*Host)

// WithPackageType selects the catalogue type used to encode the envelope
// header, by name, instead of the default "package" — for a bundle whose
// schema compiler named the envelope type something else.
func WithPackageType(name string) HostOption {
	return func(h *Host) {
		if t, ok := h.cat.TypeByName(name); ok {
			h.packageType = t
		}
	}
}

// WithSessionIDGenerator overrides how Send picks a session id when the
// caller doesn't supply one explicitly (session == 0).
func WithSessionIDGenerator(gen SessionIDGenerator) HostOption {
	return func(h *Host) { h.sessionIDGen = gen }
}

// WithFrameCompression LZ4-compresses packed frames at or above minBytes
// before Send returns them, and transparently decompresses on Dispatch.
// This wraps the already-packed bytes in a 1-byte-tagged outer envelope; it
// never touches the pack/unpack byte format itself.
func WithFrameCompression(minBytes int) HostOption {
	return func(h *Host) {
		h.frameCompression = true
		h.frameCompressionMinN = minBytes
	}
}

// WithLogger reports session-table lifecycle events (a session opened by
// Send, a session resolved by Dispatch) to logger. Sessions are never
// evicted, so there is no eviction event.
func WithLogger(logger Logger) HostOption {
	return func(h *Host) { h.logger = logger }
}

var defaultPackageType = &Type{
	Name: "package",
	Fields: []FieldDescriptor{
		{Tag: 0, Name: "type", Type: KindInteger},
		{Tag: 1, Name: "session", Type: KindInteger},
	},
	Base: 0,
	MaxN: 2,
}

// NewHost builds a Host against cat. Without WithPackageType, the host uses
// cat's own "package"-named type if the bundle defines one, falling back to
// a built-in {type, session} shape otherwise.
func NewHost(cat *Catalogue, limits Limits, opts ...HostOption) *Host {
	h := &Host{
		cat:          cat,
		limits:       limits,
		packageType:  defaultPackageType,
		sessions:     make(map[int64]sessionEntry),
		sessionIDGen: NewSessionID,
		logger:       noopLogger{},
	}
	if t, ok := cat.TypeByName("package"); ok {
		h.packageType = t
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

const (
	frameTagPlain byte = 0
	frameTagLZ4   byte = 1
)

// Send resolves protoName, encodes args (if any) against its request type,
// frames the result with Pack, and returns the bytes ready to write to the
// wire. session selects the outstanding-session table entry used to match
// a future Dispatch'd response; pass 0 to let the host's
// SessionIDGenerator pick one when a response is expected.
func (h *Host) Send(protoName string, args *Value, session int64) ([]byte, error) {
	proto, ok := h.cat.ProtocolByName(protoName)
	if !ok {
		return nil, wrapf(ErrUnknownProtocol, "protocol %q", protoName)
	}

	if session == 0 && (proto.Response != nil || proto.Confirm != 0) {
		session = h.sessionIDGen()
	}

	envelope := buildEnvelope(&proto.Tag, session)
	envBytes, err := EncodeRecord(h.packageType, envelope, h.limits)
	if err != nil {
		return nil, wrapf(ErrMalformedPayload, "encoding envelope for %q: %v", protoName, err)
	}

	out := append([]byte(nil), envBytes...)
	if args != nil {
		if proto.Request == nil {
			return nil, wrapf(ErrTypeMismatch, "protocol %q has no request type", protoName)
		}
		argBytes, err := EncodeRecord(proto.Request, *args, h.limits)
		if err != nil {
			return nil, wrapf(ErrMalformedPayload, "encoding args for %q: %v", protoName, err)
		}
		out = append(out, argBytes...)
	}

	if session != 0 {
		if proto.Response != nil {
			h.insertSession(session, sessionEntry{responseType: proto.Response})
		} else if proto.Confirm != 0 {
			h.insertSession(session, sessionEntry{confirmOnly: true})
		}
	}

	return h.frameOut(Pack(out)), nil
}

// Dispatch unframes bytes, decodes the package envelope, and classifies the
// result as either an inbound REQUEST or a resolved RESPONSE against the
// session table.
func (h *Host) Dispatch(framed []byte) (Dispatched, error) {
	packed, err := h.frameIn(framed)
	if err != nil {
		return Dispatched{}, err
	}

	unpacked, err := Unpack(packed)
	if err != nil {
		return Dispatched{}, wrapf(ErrMalformedPayload, "unpacking frame: %v", err)
	}

	r := NewReader(unpacked)
	envelope, err := decodeRecordBody(h.packageType, &r, 0, h.limits)
	if err != nil {
		return Dispatched{}, wrapf(ErrMalformedPayload, "decoding envelope: %v", err)
	}
	payload := unpacked[r.Position():]

	typeTag, hasType := envelopeInt(envelope, 0)
	session, hasSession := envelopeInt(envelope, 1)

	if hasType {
		proto, ok := h.cat.ProtocolByTag(int(typeTag))
		if !ok {
			return Dispatched{}, wrapf(ErrUnknownProtocol, "protocol tag %d", typeTag)
		}

		d := Dispatched{Kind: Request, ProtocolName: proto.Name, Session: session, HasSession: hasSession}
		if proto.Request != nil {
			// The payload may end in Pack's zero padding, so trailing bytes
			// after the record are not an error here.
			pr := NewReader(payload)
			result, err := decodeRecordBody(proto.Request, &pr, 0, h.limits)
			if err != nil {
				return Dispatched{}, err
			}
			d.Result, d.HasResult = result, true
		}
		if proto.Response != nil || proto.Confirm != 0 {
			d.Respond = func(args Value) ([]byte, error) {
				return h.respond(proto, session, args)
			}
		}
		return d, nil
	}

	entry, ok := h.takeSession(session)
	if !ok {
		return Dispatched{}, wrapf(ErrUnknownSession, "session %d", session)
	}

	d := Dispatched{Kind: Response, Session: session, HasSession: true}
	if entry.confirmOnly {
		return d, nil
	}
	pr := NewReader(payload)
	result, err := decodeRecordBody(entry.responseType, &pr, 0, h.limits)
	if err != nil {
		return Dispatched{}, err
	}
	d.Result, d.HasResult = result, true
	return d, nil
}

func (h *Host) respond(proto *Protocol, session int64, args Value) ([]byte, error) {
	envelope := buildEnvelope(nil, session)
	envBytes, err := EncodeRecord(h.packageType, envelope, h.limits)
	if err != nil {
		return nil, wrapf(ErrMalformedPayload, "encoding response envelope for %q: %v", proto.Name, err)
	}

	out := append([]byte(nil), envBytes...)
	if proto.Response != nil {
		body, err := EncodeRecord(proto.Response, args, h.limits)
		if err != nil {
			return nil, wrapf(ErrMalformedPayload, "encoding response body for %q: %v", proto.Name, err)
		}
		out = append(out, body...)
	}

	return h.frameOut(Pack(out)), nil
}

// buildEnvelope constructs the package-type Value: the "type" field is
// present only for requests (typeTag != nil), the "session" field only when
// session is non-zero — omission is by header-slot absence, not a zero
// value, since a response carries no type field at all.
func buildEnvelope(typeTag *int, session int64) Value {
	var fields []FieldValue
	if typeTag != nil {
		fields = append(fields, FieldValue{Tag: 0, Value: Integer(int64(*typeTag))})
	}
	if session != 0 {
		fields = append(fields, FieldValue{Tag: 1, Value: Integer(session)})
	}
	return StructValue(fields)
}

func envelopeInt(envelope Value, tag int) (int64, bool) {
	for _, fv := range envelope.Struct {
		if fv.Tag == tag {
			return fv.Value.Int, true
		}
	}
	return 0, false
}

func (h *Host) insertSession(session int64, entry sessionEntry) {
	h.mu.Lock()
	h.sessions[session] = entry
	h.mu.Unlock()
	h.logger.Printf("sproto: session %d opened", session)
}

func (h *Host) takeSession(session int64) (sessionEntry, bool) {
	h.mu.Lock()
	entry, ok := h.sessions[session]
	if ok {
		delete(h.sessions, session)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Printf("sproto: session %d resolved", session)
	}
	return entry, ok
}

func (h *Host) frameOut(packed []byte) []byte {
	if !h.frameCompression || len(packed) < h.frameCompressionMinN {
		return append([]byte{frameTagPlain}, packed...)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(packed)))
	var c lz4.Compressor
	n, err := c.CompressBlock(packed, compressed)
	if err != nil || n == 0 || n >= len(packed) {
		// Incompressible, or lz4 declined (n==0): fall back to plain framing.
		return append([]byte{frameTagPlain}, packed...)
	}

	out := make([]byte, 0, 1+4+n)
	out = append(out, frameTagLZ4)
	out = appendLE32(out, uint32(len(packed)))
	out = append(out, compressed[:n]...)
	return out
}

func (h *Host) frameIn(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, wrapf(ErrMalformedPayload, "empty frame")
	}

	tag, body := framed[0], framed[1:]
	switch tag {
	case frameTagPlain:
		return body, nil
	case frameTagLZ4:
		if len(body) < 4 {
			return nil, wrapf(ErrMalformedPayload, "lz4 frame missing length prefix")
		}
		originalLen := int(leU32(body[:4]))
		dst := make([]byte, originalLen)
		n, err := lz4.UncompressBlock(body[4:], dst)
		if err != nil {
			return nil, wrapf(ErrMalformedPayload, "lz4 decompress: %v", err)
		}
		return dst[:n], nil
	default:
		return nil, wrapf(ErrMalformedPayload, "unknown frame tag %d", tag)
	}
}
