package routing

import (
	"sort"
	"sync"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// Verifier checks a route advertisement's signature against the
// advertiser's known public key (spec §9: real signature verification
// everywhere, never "len(sig) > 0").
type Verifier interface {
	VerifyRoute(r Route) bool
}

// Reporter receives a protocol-violation attribution against the node
// that signed a route advertisement failing verification (spec §7:
// "repeat offenders are banned"). next_hop is the signer's identity
// (keystoreVerifier.VerifyRoute resolves the signing key from
// r.NextHop), not destination.
type Reporter interface {
	ReportProtocolViolation(sender ids.NodeID)
}

// Config bounds the route table (spec §4.8).
type Config struct {
	MaxRoutesPerDestination int
	RouteExpiry             time.Duration
}

func DefaultConfig() Config {
	return Config{MaxRoutesPerDestination: 4, RouteExpiry: 10 * time.Minute}
}

// Table is the route table: up to MaxRoutesPerDestination routes per
// destination, ordered by score (spec §4.8). It is owned and mutated
// only through its own methods (spec §5 ownership rule).
type Table struct {
	mu     sync.Mutex
	cfg    Config
	verify Verifier
	report Reporter
	routes map[ids.NodeID][]Route
}

func NewTable(cfg Config, verify Verifier) *Table {
	return &Table{cfg: cfg, verify: verify, routes: make(map[ids.NodeID][]Route)}
}

// AttachReporter wires a misbehavior sink to receive protocol-violation
// attributions for routes that fail signature verification, the same
// optional-dependency shape fragment.Fragmenter's AttachStore uses.
func (t *Table) AttachReporter(r Reporter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report = r
}

// AddRoute verifies r's signature, then either updates an existing
// (destination, next_hop) entry if sequence_no is newer (or equal with
// lower hop_count), or inserts and trims to MaxRoutesPerDestination
// (spec §4.8).
func (t *Table) AddRoute(r Route, now time.Time) error {
	if t.verify != nil && !t.verify.VerifyRoute(r) {
		t.mu.Lock()
		report := t.report
		t.mu.Unlock()
		if report != nil {
			report.ReportProtocolViolation(r.NextHop)
		}
		return lorerr.ProtocolViolationf("routing: route signature invalid for destination %s", r.Destination)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.routes[r.Destination]
	for i, existing := range bucket {
		if existing.NextHop != r.NextHop {
			continue
		}
		if r.SequenceNo > existing.SequenceNo ||
			(r.SequenceNo == existing.SequenceNo && r.HopCount < existing.HopCount) {
			bucket[i] = r
			t.sortAndTrim(r.Destination, bucket, now)
		}
		return nil
	}

	bucket = append(bucket, r)
	t.sortAndTrim(r.Destination, bucket, now)
	return nil
}

// sortAndTrim orders dest's bucket by score (descending) and trims it
// to MaxRoutesPerDestination. Caller must hold t.mu.
func (t *Table) sortAndTrim(dest ids.NodeID, bucket []Route, now time.Time) {
	sort.Slice(bucket, func(i, j int) bool { return bucket[i].Score(now) > bucket[j].Score(now) })
	if len(bucket) > t.cfg.MaxRoutesPerDestination {
		bucket = bucket[:t.cfg.MaxRoutesPerDestination]
	}
	t.routes[dest] = bucket
}

// PruneStale removes every route older than RouteExpiry, periodically
// invoked by the mesh protocol's cooperative task loop (spec §4.8).
func (t *Table) PruneStale(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for dest, bucket := range t.routes {
		kept := bucket[:0]
		for _, r := range bucket {
			if now.Sub(r.LastSyncAt) > t.cfg.RouteExpiry {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(t.routes, dest)
		} else {
			t.routes[dest] = kept
		}
	}
	return removed
}

// BestRouteFor returns the top-scoring active route to dest, if any.
func (t *Table) BestRouteFor(dest ids.NodeID, now time.Time) (Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.routes[dest] {
		if r.Active {
			return r, true
		}
	}
	return Route{}, false
}

// BestFullNodeRoute returns an active route to dest from a Full or
// Mining advertiser, preferring Mining over Full regardless of score
// and, within one class, the top-scoring route; Light routes are never
// returned (spec §4.8:
// "best_full_node_route() biases the score toward full/mining nodes").
func (t *Table) BestFullNodeRoute(dest ids.NodeID) (Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var best Route
	found := false
	for _, r := range t.routes[dest] {
		if !r.Active || r.NodeType == Light {
			continue
		}
		if !found || r.NodeType > best.NodeType {
			best, found = r, true
		}
	}
	return best, found
}

// Remove deletes every route to dest (used by route poisoning).
func (t *Table) Remove(dest ids.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, dest)
}

// RoutesFor returns a snapshot copy of dest's current route bucket.
func (t *Table) RoutesFor(dest ids.NodeID) []Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	bucket := t.routes[dest]
	out := make([]Route, len(bucket))
	copy(out, bucket)
	return out
}
