package peer

import (
	"sync"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// AddressResolver looks up the last known address for a node_id, so a
// ban raised from an offense can key both the node-id and address ban
// together (spec §4.9). Registry implements this from its discovery
// cache.
type AddressResolver interface {
	AddressOf(node ids.NodeID) (string, bool)
}

// InvalidMessageCounter receives the invalid_messages attribution spec
// §4.4/§4.9 assign to a sender's peer record on a rejected frame.
// Registry implements this against its discovery cache.
type InvalidMessageCounter interface {
	IncrementInvalid(node ids.NodeID)
}

// OffenseTrackerConfig bounds the sliding window (spec §4.9: "thresholds
// in a sliding window trigger temporary bans"; spec §8 scenario 6 names
// a 5-over-5-minutes default).
type OffenseTrackerConfig struct {
	Window    time.Duration
	Threshold int
}

func DefaultOffenseTrackerConfig() OffenseTrackerConfig {
	return OffenseTrackerConfig{Window: 5 * time.Minute, Threshold: 5}
}

// OffenseTracker counts protocol violations and spam reports against a
// sender within a sliding window and bans once the count reaches
// Threshold (spec §4.9, §7: "repeat offenders are banned"). It
// implements fragment.MisbehaviorSink by duck typing (ReportSpam,
// ReportProtocolViolation) without peer importing fragment, the same
// cross-package shape keystoreVerifier already uses for routing.
type OffenseTracker struct {
	mu      sync.Mutex
	cfg     OffenseTrackerConfig
	bans    *BanList
	invalid InvalidMessageCounter
	addrs   AddressResolver

	offenses map[ids.NodeID][]time.Time
	clock    func() time.Time
}

// NewOffenseTracker wires a sliding-window tracker to the ban list it
// escalates into and the registry it attributes invalid_messages and
// addresses against. invalid and addrs may be nil, in which case those
// attributions are skipped (useful for tests that only care about the
// ban escalation).
func NewOffenseTracker(cfg OffenseTrackerConfig, bans *BanList, invalid InvalidMessageCounter, addrs AddressResolver) *OffenseTracker {
	return &OffenseTracker{
		cfg:      cfg,
		bans:     bans,
		invalid:  invalid,
		addrs:    addrs,
		offenses: make(map[ids.NodeID][]time.Time),
		clock:    time.Now,
	}
}

// ReportSpam attributes an invalid_messages count against sender
// without counting toward the ban threshold: spam is rate-limited at
// its own layer (spec §4.4 fragments_per_minute), not escalated here.
func (t *OffenseTracker) ReportSpam(sender ids.NodeID) {
	if t.invalid != nil {
		t.invalid.IncrementInvalid(sender)
	}
}

// ReportProtocolViolation records one offense against sender, evicting
// offenses outside the sliding window, and bans sender once Threshold
// offenses remain in-window (spec §4.9, §8 scenario 6).
func (t *OffenseTracker) ReportProtocolViolation(sender ids.NodeID) {
	if t.invalid != nil {
		t.invalid.IncrementInvalid(sender)
	}

	now := t.clock()
	t.mu.Lock()
	kept := t.offenses[sender][:0]
	for _, at := range t.offenses[sender] {
		if now.Sub(at) <= t.cfg.Window {
			kept = append(kept, at)
		}
	}
	kept = append(kept, now)
	t.offenses[sender] = kept
	count := len(kept)
	t.mu.Unlock()

	if count < t.cfg.Threshold || t.bans == nil {
		return
	}

	var addr string
	if t.addrs != nil {
		addr, _ = t.addrs.AddressOf(sender)
	}
	t.bans.Ban(sender, addr, ReasonThreshold, now)

	t.mu.Lock()
	delete(t.offenses, sender)
	t.mu.Unlock()
}
