package routing

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// floodTypePriority is spec §4.8's forwarding-order priority:
// utxo_tx=10, block=8, spv_proof=6, discovery=4.
func floodTypePriority(t wire.MessageType) int {
	switch t {
	case wire.TypeUTXOTx:
		return 10
	case wire.TypeUTXOBlockFragment, wire.TypeUTXOBlockResponse:
		return 8
	case wire.TypeUTXOMerkleProof:
		return 6
	case wire.TypeDiscovery:
		return 4
	default:
		return 1
	}
}

// FloodMessage is the subset of an inbound message the flood controller
// needs to decide admission (spec §4.8 should_forward).
type FloodMessage struct {
	Originator  ids.NodeID
	SequenceNo  uint32
	MessageType wire.MessageType
	TTL         int
	VerifySig   func() bool
}

// floodKey packs (originator, sequence_no) into a fastcache key (spec §3
// Flood Cache Entry: a message is a duplicate iff this pair is already
// present).
func floodKey(originator ids.NodeID, seq uint32) []byte {
	k := make([]byte, 20+4)
	copy(k, originator[:])
	for i := 0; i < 4; i++ {
		k[20+i] = byte(seq >> (8 * (3 - i)))
	}
	return k
}

// FloodCache deduplicates (originator, sequence_no) pairs with bounded
// memory, backed by VictoriaMetrics/fastcache: a fixed-size, sharded
// cache that evicts its oldest entries automatically once full rather
// than tracking per-entry LRU order, which is adequate for a
// best-effort "don't forward the same flood twice" dedup set (spec
// §4.8) — see DESIGN.md.
type FloodCache struct {
	mu    sync.Mutex
	cache *fastcache.Cache
}

// NewFloodCache builds a cache sized maxBytes (spec §4.8: "evicts the
// cache's oldest entry when at capacity" — fastcache's generational
// reset achieves the same bounded-memory goal without exact LRU order).
func NewFloodCache(maxBytes int) *FloodCache {
	return &FloodCache{cache: fastcache.New(maxBytes)}
}

func (f *FloodCache) seen(originator ids.NodeID, seq uint32) bool {
	return f.cache.Has(floodKey(originator, seq))
}

func (f *FloodCache) mark(originator ids.NodeID, seq uint32) {
	f.cache.Set(floodKey(originator, seq), []byte{1})
}

// ShouldForward implements spec §4.8's should_forward: drops a
// duplicate (originator, sequence_no), a non-positive TTL, or a failed
// signature; otherwise admits and marks the pair seen. The caller is
// responsible for decrementing TTL on the copy it forwards.
func (f *FloodCache) ShouldForward(m FloodMessage) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m.TTL <= 0 {
		return false
	}
	if f.seen(m.Originator, m.SequenceNo) {
		return false
	}
	if m.VerifySig != nil && !m.VerifySig() {
		return false
	}
	f.mark(m.Originator, m.SequenceNo)
	return true
}

// ForwardingOrder sorts a batch of pending flood messages by
// message-type priority, highest first, for the dispatcher to drain in
// that order (spec §4.8).
func ForwardingOrder(msgs []FloodMessage) []FloodMessage {
	out := make([]FloodMessage, len(msgs))
	copy(out, msgs)
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && floodTypePriority(out[j].MessageType) > floodTypePriority(out[j-1].MessageType) {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}
