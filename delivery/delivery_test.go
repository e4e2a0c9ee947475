package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/wire"
)

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func TestPolicyForFallsBackToDiscovery(t *testing.T) {
	require := require.New(t)
	policies := DefaultQoSPolicies()
	p := PolicyFor(policies, wire.MessageType(255))
	require.Equal(policies[wire.TypeDiscovery], p)
}

func TestEmergencyAdjustRaisesFloors(t *testing.T) {
	require := require.New(t)
	policies := DefaultQoSPolicies()
	tx := policies[wire.TypeUTXOTx]
	adjusted := EmergencyAdjust(tx)
	require.GreaterOrEqual(adjusted.RetryPolicy.MaxAttempts, 5)
	require.GreaterOrEqual(adjusted.MaxLatency, 60*time.Second)
	require.Equal(tx.TxPowerDBm+3, adjusted.TxPowerDBm)
}

func TestEmergencyAdjustCapsTxPowerAt20(t *testing.T) {
	require := require.New(t)
	p := QoSPolicy{TxPowerDBm: 19}
	require.Equal(20, EmergencyAdjust(p).TxPowerDBm)
}

func TestEmergencyAdjustNeverLowersExistingBudget(t *testing.T) {
	require := require.New(t)
	policies := DefaultQoSPolicies()
	block := policies[wire.TypeUTXOBlockFragment]
	adjusted := EmergencyAdjust(block)
	require.GreaterOrEqual(adjusted.RetryPolicy.MaxAttempts, block.RetryPolicy.MaxAttempts)
}

func TestTrackerAckRetiresDelivery(t *testing.T) {
	require := require.New(t)
	tr := NewTracker(nil, nil, nil)
	now := time.Now()
	id := ids.GenerateMessageID()
	dest := node(1)

	allow, _ := tr.Begin(id, dest, wire.TypeUTXOTx, now)
	require.True(allow)

	tr.Ack(id, now)
	_, ok := tr.Pending(id)
	require.False(ok)
}

func TestTrackerRetriesUntilDeadLetter(t *testing.T) {
	require := require.New(t)
	tr := NewTracker(nil, nil, nil)
	now := time.Now()
	id := ids.GenerateMessageID()
	dest := node(2)

	// Discovery policy allows 2 attempts and does not require ack.
	allow, _ := tr.Begin(id, dest, wire.TypeDiscovery, now)
	require.True(allow)

	retry := tr.Fail(id, now)
	require.True(retry, "first failure should still be within the retry budget")

	allow, _ = tr.Begin(id, dest, wire.TypeDiscovery, now)
	require.True(allow)
	retry = tr.Fail(id, now)
	require.False(retry, "second failure exhausts discovery's 2-attempt budget")

	_, ok := tr.Pending(id)
	require.False(ok, "dead-lettered message is no longer pending")
}

func TestTrackerBreakerBlocksAfterConsecutiveFailures(t *testing.T) {
	require := require.New(t)
	tr := NewTracker(nil, nil, nil)
	now := time.Now()
	dest := node(3)

	for i := 0; i < consecutiveFailuresToOpen; i++ {
		id := ids.GenerateMessageID()
		allow, _ := tr.Begin(id, dest, wire.TypeUTXOTx, now)
		require.True(allow)
		tr.Fail(id, now)
	}

	id := ids.GenerateMessageID()
	allow, retryAfter := tr.Begin(id, dest, wire.TypeUTXOTx, now)
	require.False(allow)
	require.True(retryAfter.After(now))
}

func TestTrackerDueForRetry(t *testing.T) {
	require := require.New(t)
	tr := NewTracker(nil, nil, nil)
	now := time.Now()
	id := ids.GenerateMessageID()
	dest := node(4)

	tr.Begin(id, dest, wire.TypeUTXOTx, now)
	due := tr.DueForRetry(now.Add(time.Hour))
	require.Len(due, 1)
	require.Equal(id, due[0].MessageID)
}
