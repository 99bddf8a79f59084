package sproto

import (
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// SessionIDGenerator produces session identifiers for a Host (C10). Session
// ids are plain sproto integers, so a generator must stay within the
// positive int64 range the wire format can carry inline or in its 8-byte
// data-area body.
type SessionIDGenerator func() int64

// NewSessionID is the default SessionIDGenerator: it mints a random UUID
// and folds it down to a positive int64 with xxhash, rather than handing
// out a raw counter. This avoids collisions across Host restarts without
// the host needing to persist any state.
func NewSessionID() int64 {
	id := uuid.New()
	h := xxhash.Sum64(id[:])
	return int64(h & 0x7FFFFFFFFFFFFFFF)
}
