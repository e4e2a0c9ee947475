package peer

import (
	"sync"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// PoolConfig bounds the connection pool (spec §4.9).
type PoolConfig struct {
	MaxOutbound      int
	MaxInbound       int
	StaleAfter       time.Duration // idle duration past which a connection is closed
	EvictionMargin   float64       // a new peer must beat the lowest-in-pool score by this much to evict it
	AutoConnectScore float64       // minimum score a known peer must have to be auto-connected
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxOutbound: 8, MaxInbound: 32, StaleAfter: 5 * time.Minute, EvictionMargin: 10, AutoConnectScore: 30}
}

// Pool is the connection pool: outbound and inbound peers tracked
// separately against their respective caps (spec §4.9).
type Pool struct {
	mu       sync.Mutex
	cfg      PoolConfig
	outbound map[ids.NodeID]*Peer
	inbound  map[ids.NodeID]*Peer
}

func NewPool(cfg PoolConfig) *Pool {
	return &Pool{cfg: cfg, outbound: make(map[ids.NodeID]*Peer), inbound: make(map[ids.NodeID]*Peer)}
}

func (p *Pool) lowestOutboundScore() (ids.NodeID, float64, bool) {
	var lowID ids.NodeID
	lowScore := 0.0
	found := false
	for id, peer := range p.outbound {
		if !found || peer.Score < lowScore {
			lowID, lowScore, found = id, peer.Score, true
		}
	}
	return lowID, lowScore, found
}

// TryAddOutbound admits candidate to the outbound pool. If the pool is
// at MaxOutbound and candidate's score beats the lowest-scoring member
// by at least EvictionMargin, that member is evicted to make room
// (spec §4.9). Returns the evicted peer's id, if any, and whether
// candidate was admitted.
func (p *Pool) TryAddOutbound(candidate *Peer) (evicted ids.NodeID, didEvict bool, admitted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.outbound) < p.cfg.MaxOutbound {
		p.outbound[candidate.ID] = candidate
		return ids.NodeID{}, false, true
	}
	lowID, lowScore, found := p.lowestOutboundScore()
	if found && candidate.Score >= lowScore+p.cfg.EvictionMargin {
		delete(p.outbound, lowID)
		p.outbound[candidate.ID] = candidate
		return lowID, true, true
	}
	return ids.NodeID{}, false, false
}

// TryAddInbound admits candidate to the inbound pool if under cap.
func (p *Pool) TryAddInbound(candidate *Peer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.inbound) >= p.cfg.MaxInbound {
		return false
	}
	p.inbound[candidate.ID] = candidate
	return true
}

// Remove drops id from both pools.
func (p *Pool) Remove(id ids.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.outbound, id)
	delete(p.inbound, id)
}

// PruneStale closes (removes) connections idle past StaleAfter,
// returning the pruned node ids (spec §4.9: "stale connections (>5 min
// idle) are closed").
func (p *Pool) PruneStale(now time.Time) []ids.NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var pruned []ids.NodeID
	for _, bucket := range []map[ids.NodeID]*Peer{p.outbound, p.inbound} {
		for id, peer := range bucket {
			if peer.idle(now) > p.cfg.StaleAfter {
				delete(bucket, id)
				pruned = append(pruned, id)
			}
		}
	}
	return pruned
}

// ShouldAutoConnect reports whether candidate qualifies for
// auto-connect: its score is at least AutoConnectScore and the
// outbound pool has not yet reached MaxOutbound (spec §4.9).
func (p *Pool) ShouldAutoConnect(candidate *Peer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return candidate.Score >= p.cfg.AutoConnectScore && len(p.outbound) < p.cfg.MaxOutbound
}

// All returns every node id currently held in either pool, for shutdown
// sequencing (spec §5: "graceful shutdown closes the pool").
func (p *Pool) All() []ids.NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ids.NodeID, 0, len(p.outbound)+len(p.inbound))
	for id := range p.outbound {
		out = append(out, id)
	}
	for id := range p.inbound {
		out = append(out, id)
	}
	return out
}

// OutboundCount/InboundCount report current pool occupancy.
func (p *Pool) OutboundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.outbound)
}

func (p *Pool) InboundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inbound)
}
