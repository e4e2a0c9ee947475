// Package routing implements the L9 blockchain-aware route table, flood
// cache, path-vector loop prevention, and forwarding pipeline (spec
// §4.8).
package routing

import (
	"math"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// NodeType is a route's advertised peer class, used by the scoring
// formula and by best_full_node_route's bias (spec §3 Route).
type NodeType uint8

const (
	Light NodeType = iota
	Full
	Mining
)

func (t NodeType) baseScore() float64 {
	switch t {
	case Mining:
		return 100
	case Full:
		return 80
	default:
		return 40
	}
}

// Route is one advertised path to a destination (spec §3 Route).
type Route struct {
	Destination       ids.NodeID
	NextHop           ids.NodeID
	HopCount          int
	NodeType          NodeType
	BlockchainHeight  uint64
	UTXOCompleteness  float64
	LinkQuality       float64
	LastSyncAt        time.Time
	SequenceNo        uint32
	Signature         [64]byte
	Active            bool
}

// SignedContent is the bytes a route advertisement's signature covers.
func (r Route) SignedContent() []byte {
	buf := make([]byte, 0, 20+20+1+1+8+8+8+8+4)
	buf = append(buf, r.Destination[:]...)
	buf = append(buf, r.NextHop[:]...)
	buf = append(buf, byte(r.HopCount))
	buf = append(buf, byte(r.NodeType))
	var height [8]byte
	for i := 0; i < 8; i++ {
		height[i] = byte(r.BlockchainHeight >> (8 * (7 - i)))
	}
	buf = append(buf, height[:]...)
	var seq [4]byte
	for i := 0; i < 4; i++ {
		seq[i] = byte(r.SequenceNo >> (8 * (3 - i)))
	}
	buf = append(buf, seq[:]...)
	return buf
}

// recencyBonus rewards routes synced recently and decays linearly to
// zero by 30 minutes old. The spec names "recency_bonus" as a scoring
// term without pinning its curve; this shape is a documented decision
// (see DESIGN.md) chosen to be on the same 0-10ish scale as the other
// additive terms.
func recencyBonus(lastSyncAt, now time.Time) float64 {
	age := now.Sub(lastSyncAt)
	if age <= 0 {
		return 10
	}
	decayed := 10 - age.Minutes()/3
	if decayed < 0 {
		return 0
	}
	return decayed
}

// Score computes the spec §3 route priority score:
// {mining:100, full:80, light:40} + 50·utxo_completeness + recency_bonus
// + 20·link_quality − 5·hop_count + min(height/1000, 20).
func (r Route) Score(now time.Time) float64 {
	heightTerm := math.Min(float64(r.BlockchainHeight)/1000, 20)
	return r.NodeType.baseScore() +
		50*r.UTXOCompleteness +
		recencyBonus(r.LastSyncAt, now) +
		20*r.LinkQuality -
		5*float64(r.HopCount) +
		heightTerm
}
