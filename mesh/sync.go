// Package mesh implements the L11 mesh protocol: the per-peer sync
// state machine, header batching, UTXO snapshot negotiation, transport
// strategy selection, and graceful shutdown sequencing (spec §4.10).
package mesh

import (
	"sync"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// SyncState is one node's sync progress against a peer (spec §4.10).
type SyncState uint8

const (
	Discovering SyncState = iota
	Negotiating
	HeaderSync
	UTXOSetSync
	BlockSync
	MempoolSync
	Synchronized
	ReorgHandling
)

func (s SyncState) String() string {
	switch s {
	case Discovering:
		return "discovering"
	case Negotiating:
		return "negotiating"
	case HeaderSync:
		return "header_sync"
	case UTXOSetSync:
		return "utxo_set_sync"
	case BlockSync:
		return "block_sync"
	case MempoolSync:
		return "mempool_sync"
	case Synchronized:
		return "synchronized"
	case ReorgHandling:
		return "reorg_handling"
	default:
		return "unknown"
	}
}

// validForward is the linear happy-path transition table (spec §4.10).
var validForward = map[SyncState]SyncState{
	Discovering: Negotiating,
	Negotiating: HeaderSync,
	HeaderSync:  UTXOSetSync,
	UTXOSetSync: BlockSync,
	BlockSync:   MempoolSync,
	MempoolSync: Synchronized,
}

// DefaultHeaderBatchSize is spec §4.10's default header batch size.
const DefaultHeaderBatchSize = 100

// PeerSync tracks one peer's sync state machine. ReorgHandling is
// reachable from any state upon a longer, valid fork tip (spec §4.10);
// every other transition must follow validForward.
type PeerSync struct {
	mu             sync.Mutex
	Peer           ids.NodeID
	State          SyncState
	HeaderBatchSize int
	NegotiatedHeight uint64
	EnteredAt      time.Time
}

func NewPeerSync(peer ids.NodeID, now time.Time) *PeerSync {
	return &PeerSync{Peer: peer, State: Discovering, HeaderBatchSize: DefaultHeaderBatchSize, EnteredAt: now}
}

// Advance moves the state machine forward along the happy path (spec
// §4.10's linear ordering), rejecting any transition that is neither
// the next state in sequence nor ReorgHandling.
func (p *PeerSync) Advance(next SyncState, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if next == ReorgHandling {
		p.State, p.EnteredAt = ReorgHandling, now
		return nil
	}
	want, ok := validForward[p.State]
	if !ok || want != next {
		return lorerr.Validationf("mesh: invalid sync transition %s -> %s", p.State, next)
	}
	p.State, p.EnteredAt = next, now
	return nil
}

// ResumeFromReorg returns to HeaderSync after handling a reorg, the
// only state ReorgHandling may forward into (spec §4.10 implies
// re-entering the sync pipeline from the header stage once the new
// fork's headers must be re-verified).
func (p *PeerSync) ResumeFromReorg(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State != ReorgHandling {
		return lorerr.Validationf("mesh: ResumeFromReorg called outside ReorgHandling")
	}
	p.State, p.EnteredAt = HeaderSync, now
	return nil
}

func (p *PeerSync) CurrentState() SyncState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.State
}

// HeaderBatch is one batch of headers exchanged during HeaderSync
// (spec §4.10: "headers are batched (default 100)").
type HeaderBatch struct {
	FromHeight uint64
	Headers    []ids.ID // block hashes, ordered by height
}

func BatchHeaders(hashes []ids.ID, fromHeight uint64, batchSize int) []HeaderBatch {
	if batchSize <= 0 {
		batchSize = DefaultHeaderBatchSize
	}
	var batches []HeaderBatch
	for i := 0; i < len(hashes); i += batchSize {
		end := i + batchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batches = append(batches, HeaderBatch{FromHeight: fromHeight + uint64(i), Headers: hashes[i:end]})
	}
	return batches
}

// SnapshotNegotiation is the UTXO snapshot checkpoint agreed with a
// peer during UTXOSetSync (spec §4.10: "UTXO snapshots are negotiated
// at a chosen height and verified against the committed Merkle root
// before the node accepts blocks on top").
type SnapshotNegotiation struct {
	Height     uint64
	MerkleRoot ids.ID
}

// VerifySnapshot checks the negotiated snapshot's claimed root against
// the root independently computed from the snapshot's UTXO set
// (supplied by the caller, which owns the UTXO index per spec §5's
// ownership rule).
func VerifySnapshot(n SnapshotNegotiation, computedRoot ids.ID) error {
	if n.MerkleRoot != computedRoot {
		return lorerr.Fatalf("mesh: utxo snapshot root mismatch at height %d", n.Height)
	}
	return nil
}
