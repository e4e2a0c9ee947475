// Package merkle builds and verifies the Merkle trees and compact SPV
// proofs used to prove transaction inclusion against a block's header
// without downloading the full block (spec §4.2).
package merkle

import (
	"crypto/sha256"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// Side indicates which side of the pairwise hash a proof entry sits on.
type Side bool

const (
	Left  Side = false
	Right Side = true
)

// PathEntry is one step of a Merkle proof.
type PathEntry struct {
	Hash ids.ID
	Side Side
}

// Proof lets a light client verify that Txid is included in the tree
// whose root is Root, without the rest of the transactions.
type Proof struct {
	TxID   ids.ID
	TxHash ids.ID
	Root   ids.ID
	Path   []PathEntry
}

func pairHash(a, b ids.ID) ids.ID {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return sha256.Sum256(buf)
}

// Root computes the Merkle root over txids, pairwise SHA-256 hashing
// and duplicating the last hash on odd-sized levels (spec §4.2).
func Root(txids []ids.ID) ids.ID {
	if len(txids) == 0 {
		return ids.Empty
	}
	level := make([]ids.ID, len(txids))
	copy(level, txids)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]ids.ID, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, pairHash(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// Prove builds an inclusion proof for the transaction at txIndex in
// txids.
func Prove(txids []ids.ID, txIndex int) (Proof, error) {
	if txIndex < 0 || txIndex >= len(txids) {
		return Proof{}, lorerr.Validationf("merkle: index %d out of range", txIndex)
	}

	level := make([]ids.ID, len(txids))
	copy(level, txids)
	idx := txIndex
	var path []PathEntry

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		var sibIdx int
		var side Side
		if idx%2 == 0 {
			sibIdx = idx + 1
			side = Right
		} else {
			sibIdx = idx - 1
			side = Left
		}
		path = append(path, PathEntry{Hash: level[sibIdx], Side: side})

		next := make([]ids.ID, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, pairHash(level[i], level[i+1]))
		}
		level = next
		idx /= 2
	}

	return Proof{
		TxID:   txids[txIndex],
		TxHash: txids[txIndex],
		Root:   level[0],
		Path:   path,
	}, nil
}

// Verify recomputes the root by folding p.Path over p.TxHash and
// compares it against root. Tampering any path entry or side flips the
// result to false.
func Verify(p Proof, root ids.ID) bool {
	cur := p.TxHash
	for _, entry := range p.Path {
		if entry.Side == Right {
			cur = pairHash(cur, entry.Hash)
		} else {
			cur = pairHash(entry.Hash, cur)
		}
	}
	return cur == root
}

// onWireSize estimates the serialized size of a proof on the radio:
// a 128-byte fixed header-ish allowance (txid+txhash+root+lengths) plus
// 65 bytes per path entry (32-byte hash + 1-byte side, rounded for
// framing overhead, matching spec §4.2's 65-byte-per-entry budget).
func onWireSize(pathLen int) int {
	return 128 + 65*pathLen
}

// FitsLoRa reports whether p's estimated on-wire size fits within a
// single 256-byte LoRa frame (spec §4.2, §8 boundary: exactly 256 is
// admitted, any larger is rejected).
func FitsLoRa(p Proof) bool {
	return onWireSize(len(p.Path)) <= 256
}
