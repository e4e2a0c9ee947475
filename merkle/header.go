package merkle

import (
	"strings"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// Header is the compact block header an SPV client verifies proofs
// against, without needing the full block body.
type Header struct {
	Index      uint64
	Timestamp  int64
	PrevHash   ids.ID
	MerkleRoot ids.ID
	Hash       ids.ID
	Nonce      uint64
	Difficulty uint32
	TxCount    int
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

// LeadingZeroNibbles reports how many leading hex nibbles of h are
// zero, used both here and in chain.Block proof-of-work checks.
func LeadingZeroNibbles(h ids.ID) uint32 {
	hexStr := h.String()
	var n uint32
	for _, c := range hexStr {
		if c != '0' {
			break
		}
		n++
	}
	return n
}

// ValidateHeader checks the structural and proof-of-work requirements
// of spec §4.2: hex-valid hash/root, non-negative fields, continuity
// against the previous header when supplied, and difficulty-satisfying
// hash.
func ValidateHeader(h Header, prev *Header) error {
	if !isHex64(h.Hash.String()) || !isHex64(h.MerkleRoot.String()) {
		return lorerr.Validationf("spv: hash/merkle_root must be 64 hex chars")
	}
	if h.Timestamp < 0 {
		return lorerr.Validationf("spv: negative timestamp")
	}
	if h.TxCount < 0 {
		return lorerr.Validationf("spv: negative tx_count")
	}
	if prev != nil {
		if h.Index != prev.Index+1 {
			return lorerr.Validationf("spv: non-contiguous index %d after %d", h.Index, prev.Index)
		}
		if h.PrevHash != prev.Hash {
			return lorerr.Validationf("spv: prev_hash mismatch")
		}
	}
	if LeadingZeroNibbles(h.Hash) < h.Difficulty {
		return lorerr.Validationf("spv: hash does not satisfy difficulty %d", h.Difficulty)
	}
	return nil
}
