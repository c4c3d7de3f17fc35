// Package oid defines the content-addressed object identifier used
// throughout the merge engine: a 160-bit hash rendered as 40 lowercase hex
// characters, with the total order the tree-encoding and index formats rely
// on.
package oid

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
)

// Size is the length in bytes of an OID (SHA-1/Git-compatible).
const Size = 20

// HexSize is the length of the hex-encoded string form of an OID.
const HexSize = Size * 2

// OID is an opaque content hash with a well-defined total order.
type OID [Size]byte

// Zero is the all-zero OID, used to mark an absent side of a REUC entry and
// as the sentinel "no object" value.
var Zero OID

// New parses a 40-character hex string into an OID. It returns Zero and
// false if s is not a valid hex-encoded OID.
func New(s string) (OID, bool) {
	var o OID
	if len(s) != HexSize {
		return o, false
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return o, false
	}

	copy(o[:], b)
	return o, true
}

// MustNew is like New but panics on an invalid string; it exists for tests
// and fixtures where the hex literal is known to be well-formed.
func MustNew(s string) OID {
	o, ok := New(s)
	if !ok {
		panic("oid: invalid hex string " + s)
	}
	return o
}

// String renders the OID as 40 lowercase hex characters.
func (o OID) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero reports whether o is the all-zero OID.
func (o OID) IsZero() bool {
	return o == Zero
}

// Compare returns -1, 0 or +1 as o is less than, equal to, or greater than
// other, comparing byte-wise.
func (o OID) Compare(other OID) int {
	return bytes.Compare(o[:], other[:])
}

// Equal reports whether o and other are the same OID.
func (o OID) Equal(other OID) bool {
	return o == other
}

// FromContent derives a content-addressed OID from raw bytes, the same
// SHA-1 family the rest of the object model uses. Callers that synthesize
// a new object in memory (the orchestrator's virtual-ancestor tree/commit
// fold) use this instead of inventing an OID scheme, so a synthesized
// object is addressed exactly like one loaded from a real ODB.
func FromContent(prefix string, content []byte) OID {
	h := sha1.New()
	h.Write([]byte(prefix))
	h.Write(content)
	var o OID
	copy(o[:], h.Sum(nil))
	return o
}
