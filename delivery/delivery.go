// Package delivery implements the L8 QoS and reliable-delivery layer:
// per-priority QoS parameters, pending-delivery tracking through to
// acknowledgment or dead-letter, and a per-destination circuit breaker
// (spec §4.7).
package delivery

import (
	"time"

	"github.com/grekinsky/lorachain-sub002/fragment"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// QoSPolicy is the per-priority delivery contract of spec §4.7:
// {tx_power_dBm, retry_attempts, confirmation_required,
// compression_required, timeout_ms, duty_cycle_exempt}. duty_cycle_exempt
// is not stored here: it is a function of priority and emergency_mode,
// computed by dutycycle.DutyCycleExempt at transmission time rather than
// carried on the policy itself.
type QoSPolicy struct {
	MaxLatency          time.Duration
	RetryPolicy         fragment.RetryPolicy
	RequireAck          bool
	TxPowerDBm          int
	CompressionRequired bool
}

// DefaultTxPowerDBm is the baseline transmit power every policy starts
// from before EmergencyAdjust's +3 dBm override (spec §4.7/§4.7
// emergency mode, capped at 20 dBm).
const DefaultTxPowerDBm = 14

// DefaultQoSPolicies returns the spec §4.7 table of per-message-type
// retry policies: tx base1s x1.5 cap30s 5 attempts; block base500ms
// x1.2 cap15s 7 attempts; sync base2s x2 cap60s 3 attempts; discovery
// base5s x2 cap120s 2 attempts.
func DefaultQoSPolicies() map[wire.MessageType]QoSPolicy {
	mk := func(base time.Duration, mult float64, cap time.Duration, attempts int, requireAck, compressionRequired bool) QoSPolicy {
		return QoSPolicy{
			MaxLatency: cap,
			RetryPolicy: fragment.RetryPolicy{
				Base:        base,
				Multiplier:  mult,
				JitterMax:   base / 5,
				Cap:         cap,
				MaxAttempts: attempts,
			},
			RequireAck:          requireAck,
			TxPowerDBm:          DefaultTxPowerDBm,
			CompressionRequired: compressionRequired,
		}
	}
	// tx/block are latency-critical; compression's CPU cost isn't worth
	// the airtime saved. sync/discovery are bulk and less urgent, so
	// compression trades CPU for airtime under the duty-cycle budget.
	tx := mk(time.Second, 1.5, 30*time.Second, 5, true, false)
	block := mk(500*time.Millisecond, 1.2, 15*time.Second, 7, true, false)
	sync := mk(2*time.Second, 2.0, 60*time.Second, 3, true, true)
	discovery := mk(5*time.Second, 2.0, 120*time.Second, 2, false, true)

	return map[wire.MessageType]QoSPolicy{
		wire.TypeUTXOTx:            tx,
		wire.TypeUTXOBlockFragment: block,
		wire.TypeUTXOBlockResponse: block,
		wire.TypeUTXOHeaderBatch:   sync,
		wire.TypeUTXOSetSnapshot:   sync,
		wire.TypeUTXOSetDelta:     sync,
		wire.TypeSyncStatus:        sync,
		wire.TypeDiscovery:         discovery,
		wire.TypeBeacon:            discovery,
		wire.TypeCapabilityAnnounce: discovery,
	}
}

// PolicyFor returns the policy for t, falling back to the discovery
// policy (most conservative/least urgent) for any type outside the
// table.
func PolicyFor(policies map[wire.MessageType]QoSPolicy, t wire.MessageType) QoSPolicy {
	if p, ok := policies[t]; ok {
		return p
	}
	return policies[wire.TypeDiscovery]
}

const maxTxPowerDBm = 20

// EmergencyAdjust applies spec §4.7's emergency-mode overrides: retry
// attempts raised to at least 5, timeout raised to at least 60s,
// tx_power raised by 3 dBm (capped at 20), and (for Critical priority)
// duty-cycle exemption — the last of which is surfaced to callers via
// wire/dutycycle, not stored here.
func EmergencyAdjust(p QoSPolicy) QoSPolicy {
	out := p
	if out.RetryPolicy.MaxAttempts < 5 {
		out.RetryPolicy.MaxAttempts = 5
	}
	if out.MaxLatency < 60*time.Second {
		out.MaxLatency = 60 * time.Second
	}
	if out.RetryPolicy.Cap < 60*time.Second {
		out.RetryPolicy.Cap = 60 * time.Second
	}
	out.TxPowerDBm += 3
	if out.TxPowerDBm > maxTxPowerDBm {
		out.TxPowerDBm = maxTxPowerDBm
	}
	return out
}

// State is a PendingDelivery's lifecycle stage.
type State int

const (
	Pending State = iota
	Acknowledged
	DeadLetter
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Acknowledged:
		return "acknowledged"
	case DeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

// PendingDelivery tracks one in-flight message through to
// acknowledgment or dead-letter (spec §4.7).
type PendingDelivery struct {
	MessageID   ids.MessageID
	Destination ids.NodeID
	Type        wire.MessageType
	State       State
	Attempts    int
	FirstSentAt time.Time
	LastSentAt  time.Time
	NextRetryAt time.Time
}

func (d *PendingDelivery) expired(policy QoSPolicy, now time.Time) bool {
	return now.Sub(d.FirstSentAt) > policy.MaxLatency
}
