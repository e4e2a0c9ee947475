package routing

import (
	"sync"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// PathVector is the list of node ids a message has traversed (spec §10
// Glossary). IsLoop implements spec §4.8's three loop conditions: a
// repeated node, our own node_id already present, or the path exceeding
// max_path_length.
type PathVector []ids.NodeID

func IsLoop(path PathVector, self ids.NodeID, maxPathLength int) bool {
	if len(path) > maxPathLength {
		return true
	}
	seen := make(map[ids.NodeID]struct{}, len(path))
	for _, n := range path {
		if n == self {
			return true
		}
		if _, dup := seen[n]; dup {
			return true
		}
		seen[n] = struct{}{}
	}
	return false
}

// SequenceVerifier checks a per-node sequence advertisement's
// signature before it is trusted.
type SequenceVerifier interface {
	VerifySequence(node ids.NodeID, seq uint32, sig [64]byte) bool
}

const holdDownDuration = 2 * time.Minute

// LoopGuard tracks the highest seen sequence number per node and
// manages route poisoning's hold-down timer (spec §4.8: "receiving a
// lower-or-equal sequence is ignored... route poisoning removes a
// destination and starts a hold-down timer during which new routes to
// that destination are refused").
type LoopGuard struct {
	mu         sync.Mutex
	verify     SequenceVerifier
	sequences  map[ids.NodeID]uint32
	holdDownTo map[ids.NodeID]time.Time
}

func NewLoopGuard(verify SequenceVerifier) *LoopGuard {
	return &LoopGuard{
		verify:     verify,
		sequences:  make(map[ids.NodeID]uint32),
		holdDownTo: make(map[ids.NodeID]time.Time),
	}
}

// AcceptSequence reports whether a sequence advertisement from node
// should be accepted: its signature must verify and its sequence must
// be strictly greater than the last accepted one.
func (g *LoopGuard) AcceptSequence(node ids.NodeID, seq uint32, sig [64]byte) bool {
	if g.verify != nil && !g.verify.VerifySequence(node, seq, sig) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.sequences[node]; ok && seq <= last {
		return false
	}
	g.sequences[node] = seq
	return true
}

// Poison starts dest's hold-down timer; Table.Remove should be called
// alongside this to drop its current routes.
func (g *LoopGuard) Poison(dest ids.NodeID, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holdDownTo[dest] = now.Add(holdDownDuration)
}

// InHoldDown reports whether dest is still within its poisoning
// hold-down window, during which new routes to it are refused.
func (g *LoopGuard) InHoldDown(dest ids.NodeID, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.holdDownTo[dest]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(g.holdDownTo, dest)
		return false
	}
	return true
}
