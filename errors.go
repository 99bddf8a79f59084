package sproto

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced by the codec. Use errors.Is against these to
// classify a failure; the wrapped message carries call-specific detail.
var (
	// ErrMalformedSchema is returned when a bundle fails structural validation:
	// size mismatch, non-monotonic tags, an unknown meta-tag, or a dangling
	// type-id reference.
	ErrMalformedSchema = errors.New("sproto: malformed schema")

	// ErrMalformedPayload is returned when a record or array body fails
	// structural validation: inconsistent integer width, a length prefix that
	// overruns the buffer, or a truncated read.
	ErrMalformedPayload = errors.New("sproto: malformed payload")

	// ErrTypeMismatch is returned when a value is not assignable to its
	// declared field type.
	ErrTypeMismatch = errors.New("sproto: type mismatch")

	// ErrTooDeep is returned when recursive encode or decode exceeds the
	// configured depth limit.
	ErrTooDeep = errors.New("sproto: recursion too deep")

	// ErrUnknownProtocol is returned when an RPC envelope references a
	// protocol tag absent from the catalogue.
	ErrUnknownProtocol = errors.New("sproto: unknown protocol")

	// ErrUnknownSession is returned when a response arrives for a session id
	// not present in the host's session table.
	ErrUnknownSession = errors.New("sproto: unknown session")

	// ErrEncodingOverflow is returned when a tag gap cannot be represented in
	// 16 bits, or an integer cannot be represented in 64 bits.
	ErrEncodingOverflow = errors.New("sproto: encoding overflow")

	// ErrTruncated is returned by the low-level Reader when a read runs past
	// the end of the buffer. Higher layers wrap this as ErrMalformedPayload or
	// ErrMalformedSchema depending on what was being read.
	ErrTruncated = errors.New("sproto: truncated buffer")
)

// wrapf wraps a sentinel error with call-specific detail: sentinel vars for
// the coarse case callers switch on with errors.Is, fmt.Errorf for the
// detail a human reads in a log line.
func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}
