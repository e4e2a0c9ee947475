package peer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/logging"
)

// Candidate is one discovered peer, tagged with the mode that found it
// (spec §4.9).
type Candidate struct {
	ID      ids.NodeID
	Address string
	Port    int
	Method  DiscoveryMethod
}

// Source yields discovered candidates for one discovery mode (DNS
// seed, mDNS, mesh announce, peer exchange). Implementations live in
// the transport layer; this package only orchestrates them
// concurrently and merges results (spec §4.9: "discovery runs
// concurrently in modes").
type Source interface {
	Discover(ctx context.Context) ([]Candidate, error)
}

// Registry is where discovered candidates land: inserted new or used to
// refresh last_seen on an existing entry, subject to MaxDiscoveryPeers
// (spec §4.9). It consults the ban list on every insertion so a banned
// node_id or address cannot re-enter through discovery (spec §8
// invariant 6: "after ban(peer), any subsequent add_peer of the same
// node_id or address returns false until the ban expires or clears").
type Registry struct {
	mu               sync.Mutex
	log              logging.Logger
	maxDiscoveryPeers int
	bans             *BanList
	peers            map[ids.NodeID]*Peer
}

func NewRegistry(maxDiscoveryPeers int, bans *BanList, log logging.Logger) *Registry {
	if log == nil {
		log = logging.NoLog
	}
	return &Registry{maxDiscoveryPeers: maxDiscoveryPeers, bans: bans, log: log, peers: make(map[ids.NodeID]*Peer)}
}

// ingest adds c to the registry, refreshing last_seen if already known.
// It returns false without inserting or refreshing a banned node_id or
// address (spec §8 invariant 6), and false if the registry is full.
func (r *Registry) ingest(c Candidate, now time.Time) bool {
	if r.bans != nil && (r.bans.IsBanned(c.ID, now) || r.bans.IsBannedAddr(c.Address, now)) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.peers[c.ID]; ok {
		existing.LastSeen = now
		return true
	}
	if len(r.peers) >= r.maxDiscoveryPeers {
		return false
	}
	r.peers[c.ID] = &Peer{
		ID:              c.ID,
		Address:         c.Address,
		Port:            c.Port,
		DiscoveryMethod: c.Method,
		DiscoveredAt:    now,
		LastSeen:        now,
		ConnectionState: Disconnected,
	}
	return true
}

// IncrementInvalid bumps the invalid_messages counter for a known peer
// (spec §4.4/§4.9: "increments invalid_messages for the sender"), used
// by the offense tracker to feed peer/score.go's behavior term. A peer
// not yet in the registry (e.g. only known through the connection pool)
// is silently skipped; the offense count itself still accrues in the
// tracker regardless.
func (r *Registry) IncrementInvalid(node ids.NodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[node]; ok {
		p.MessagesInvalid++
	}
}

// AddressOf returns the last known address for a discovered node_id, so
// the offense tracker can key a ban against both node_id and address
// (spec §4.9).
func (r *Registry) AddressOf(node ids.NodeID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[node]
	if !ok {
		return "", false
	}
	return p.Address, true
}

// RunOnce runs every source concurrently via golang.org/x/sync/errgroup
// and merges their candidates into the registry. A single failing
// source does not abort the others (spec §4.9's modes are independent).
func (r *Registry) RunOnce(ctx context.Context, sources []Source, now time.Time) error {
	var mu sync.Mutex
	var all []Candidate

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sources {
		s := s
		g.Go(func() error {
			found, err := s.Discover(gctx)
			if err != nil {
				r.log.Warn("discovery source failed")
				return nil
			}
			mu.Lock()
			all = append(all, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range all {
		if !r.ingest(c, now) {
			r.log.Debug("dropped discovery candidate: banned or registry full")
		}
	}
	return nil
}

// Snapshot returns a copy of every known peer.
func (r *Registry) Snapshot() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		cp := *p
		out = append(out, &cp)
	}
	return out
}
