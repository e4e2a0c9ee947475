package peer

import (
	"sync"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// BanReason distinguishes offenses that escalate straight to a
// permanent ban from those that accumulate toward one (spec §4.9).
type BanReason uint8

const (
	ReasonThreshold BanReason = iota
	ReasonProtocolViolation
	ReasonMaliciousContent
)

type banRecord struct {
	nodeBanned   bool
	permanent    bool
	expiresAt    time.Time
	tempBanCount int
}

// BanListConfig bounds the ban list (spec §4.9).
type BanListConfig struct {
	TempBanDuration time.Duration
	MaxTempBans     int // beyond this count, further offenses promote to permanent
}

func DefaultBanListConfig() BanListConfig {
	return BanListConfig{TempBanDuration: 30 * time.Minute, MaxTempBans: 3}
}

// BanList tracks node-id and address bans in lockstep (spec §4.9: "the
// address ban is tracked alongside the node-id ban; both must be
// cleared by unban").
type BanList struct {
	mu       sync.Mutex
	cfg      BanListConfig
	byNode   map[ids.NodeID]*banRecord
	byAddr   map[string]*banRecord
}

func NewBanList(cfg BanListConfig) *BanList {
	return &BanList{cfg: cfg, byNode: make(map[ids.NodeID]*banRecord), byAddr: make(map[string]*banRecord)}
}

// Ban records an offense against node/addr. ReasonProtocolViolation and
// ReasonMaliciousContent ban permanently immediately; ReasonThreshold
// bans temporarily, promoting to permanent after MaxTempBans temporary
// bans (spec §4.9).
func (b *BanList) Ban(node ids.NodeID, addr string, reason BanReason, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.recordFor(node, addr)

	switch reason {
	case ReasonProtocolViolation, ReasonMaliciousContent:
		rec.nodeBanned = true
		rec.permanent = true
	default:
		rec.tempBanCount++
		rec.nodeBanned = true
		if rec.tempBanCount > b.cfg.MaxTempBans {
			rec.permanent = true
		} else {
			rec.expiresAt = now.Add(b.cfg.TempBanDuration)
		}
	}
}

func (b *BanList) recordFor(node ids.NodeID, addr string) *banRecord {
	rec, ok := b.byNode[node]
	if !ok {
		rec = &banRecord{}
		b.byNode[node] = rec
	}
	b.byAddr[addr] = rec
	return rec
}

// IsBanned reports whether node is currently banned, auto-unbanning an
// expired temporary ban first (spec §4.9: "auto-unban is supported for
// expired temporary bans").
func (b *BanList) IsBanned(node ids.NodeID, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.byNode[node]
	return ok && bannedLocked(rec, now)
}

// IsBannedAddr reports whether addr is currently banned, under the same
// auto-unban rule as IsBanned (spec §4.9: "the address ban is tracked
// alongside the node-id ban").
func (b *BanList) IsBannedAddr(addr string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.byAddr[addr]
	return ok && bannedLocked(rec, now)
}

// bannedLocked reports whether rec is currently a live ban, clearing an
// expired temporary ban as a side effect. Caller must hold b.mu.
func bannedLocked(rec *banRecord, now time.Time) bool {
	if !rec.nodeBanned {
		return false
	}
	if !rec.permanent && !rec.expiresAt.IsZero() && now.After(rec.expiresAt) {
		rec.nodeBanned = false
		return false
	}
	return true
}

// Snapshot returns every currently-banned node id mapped to whether its
// ban is permanent, for shutdown persistence (spec §5: "graceful
// shutdown ... persists the ban list").
func (b *BanList) Snapshot() map[ids.NodeID]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[ids.NodeID]bool, len(b.byNode))
	for node, rec := range b.byNode {
		if rec.nodeBanned {
			out[node] = rec.permanent
		}
	}
	return out
}

// Unban clears both the node-id and address ban for node/addr.
func (b *BanList) Unban(node ids.NodeID, addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.byNode, node)
	delete(b.byAddr, addr)
}
