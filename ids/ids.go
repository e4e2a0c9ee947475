// Package ids defines the fixed-size identifier types shared across the
// mesh and ledger layers: 32-byte content hashes, 20-byte node/address
// identifiers, and 16-byte message identifiers.
package ids

import (
	"encoding/hex"
	"errors"

	"github.com/mr-tron/base58/base58"
)

// ID is a 32-byte hash-derived identifier: a transaction id, block hash,
// or Merkle root.
type ID [32]byte

var Empty ID

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ID) Bytes() []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

func (id ID) IsZero() bool {
	return id == Empty
}

func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != len(id) {
		return id, errors.New("ids: wrong length for ID")
	}
	copy(id[:], b)
	return id, nil
}

func IDFromString(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, err
	}
	return IDFromBytes(b)
}

// NodeID identifies a mesh participant, derived from the first 20 bytes of
// the SHA-256 of its identity public key (the teacher derives NodeID
// similarly from a certificate fingerprint).
type NodeID [20]byte

var EmptyNodeID NodeID

func (n NodeID) String() string {
	return "NodeID-" + base58.Encode(n[:])
}

func (n NodeID) Bytes() []byte {
	b := make([]byte, len(n))
	copy(b, n[:])
	return b
}

func NodeIDFromBytes(b []byte) (NodeID, error) {
	var n NodeID
	if len(b) != len(n) {
		return n, errors.New("ids: wrong length for NodeID")
	}
	copy(n[:], b)
	return n, nil
}

// ShortID is used for addresses: 20 bytes, base58check-encoded for
// display by the crypto package.
type ShortID [20]byte

func (s ShortID) Bytes() []byte {
	b := make([]byte, len(s))
	copy(b, s[:])
	return b
}

func ShortIDFromBytes(b []byte) (ShortID, error) {
	var s ShortID
	if len(b) != len(s) {
		return s, errors.New("ids: wrong length for ShortID")
	}
	copy(s[:], b)
	return s, nil
}

// MessageID identifies a fragmentation session across the fragmenter,
// priority queue, and reliable-delivery tracker.
type MessageID [16]byte

var EmptyMessageID MessageID

func (m MessageID) String() string {
	return hex.EncodeToString(m[:])
}

func (m MessageID) Bytes() []byte {
	b := make([]byte, len(m))
	copy(b, m[:])
	return b
}

func MessageIDFromBytes(b []byte) (MessageID, error) {
	var m MessageID
	if len(b) != len(m) {
		return m, errors.New("ids: wrong length for MessageID")
	}
	copy(m[:], b)
	return m, nil
}
