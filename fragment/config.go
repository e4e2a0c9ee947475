// Package fragment implements the L5 fragmenter: splitting signed
// messages into ≤256-byte wire fragments, reassembling them, tracking
// missing fragments, and scheduling retransmission — the mesh's most
// heavily engineered component (spec §4.4).
package fragment

import (
	"time"

	"github.com/grekinsky/lorachain-sub002/wire"
)

// RetryPolicy is the per-message-type retransmission backoff shape of
// spec §4.4: delay = min(base*multiplier^attempt + U(0,jitterMax), cap).
type RetryPolicy struct {
	Base       time.Duration
	Multiplier float64
	JitterMax  time.Duration
	Cap        time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy is the spec §4.4 default: base=1s, x2.0, jitter=20%
// of base, cap=16s, 3 attempts.
func DefaultRetryPolicy() RetryPolicy {
	base := time.Second
	return RetryPolicy{
		Base:        base,
		Multiplier:  2.0,
		JitterMax:   base * 20 / 100,
		Cap:         16 * time.Second,
		MaxAttempts: 3,
	}
}

// Config bundles the fragmenter's tunables.
type Config struct {
	RTTEstimate time.Duration

	// RetryPolicyFor returns the retry policy for a message type,
	// overridable per type (spec §4.4: "overridable per message type").
	RetryPolicyFor func(wire.MessageType) RetryPolicy

	FragmentsPerMinute  int
	MaxSessionsPerSender int

	// MaxMemorySessions bounds total concurrent reassembly sessions
	// before eviction kicks in (spec §4.4 memory-pressure eviction).
	MaxMemorySessions int
}

func DefaultConfig() Config {
	return Config{
		RTTEstimate:          2 * time.Second,
		RetryPolicyFor:       func(wire.MessageType) RetryPolicy { return DefaultRetryPolicy() },
		FragmentsPerMinute:   600,
		MaxSessionsPerSender: 16,
		MaxMemorySessions:    512,
	}
}

// AdaptRetryPolicy applies the network-adaptive tuning of spec §4.4:
// higher packet_loss raises max attempts, higher congestion raises cap,
// higher latency raises base.
func AdaptRetryPolicy(p RetryPolicy, packetLoss, congestionLevel float64, latency time.Duration) RetryPolicy {
	out := p
	if packetLoss > 0.1 {
		extra := int(packetLoss * 10)
		out.MaxAttempts += extra
	}
	if congestionLevel > 0.5 {
		out.Cap += time.Duration(congestionLevel * float64(p.Cap))
	}
	if latency > 0 {
		out.Base += latency
	}
	return out
}

// PriorityFor assigns the default priority of spec §4.4: blocks are
// Critical, transactions are High (or Critical under emergencyFlag),
// SPV sync is High, discovery is Normal, everything else Low.
func PriorityFor(t wire.MessageType, emergency bool) wire.Priority {
	switch t {
	case wire.TypeUTXOBlockFragment, wire.TypeUTXOBlockResponse:
		return wire.Critical
	case wire.TypeUTXOTx:
		if emergency {
			return wire.Critical
		}
		return wire.High
	case wire.TypeUTXOHeaderBatch, wire.TypeUTXOSetSnapshot, wire.TypeUTXOMerkleProof, wire.TypeSyncStatus:
		return wire.High
	case wire.TypeDiscovery, wire.TypeBeacon, wire.TypeCapabilityAnnounce:
		return wire.Normal
	default:
		return wire.Low
	}
}
