package fragment

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/wire"
)

type staticKeys struct {
	nodeID ids.NodeID
	pub    *btcec.PublicKey
}

func (k staticKeys) PublicKey(n ids.NodeID) (*btcec.PublicKey, bool) {
	if n == k.nodeID {
		return k.pub, true
	}
	return nil, false
}

type recordingMisbehavior struct {
	spam, violations []ids.NodeID
}

func (r *recordingMisbehavior) ReportSpam(n ids.NodeID)              { r.spam = append(r.spam, n) }
func (r *recordingMisbehavior) ReportProtocolViolation(n ids.NodeID) { r.violations = append(r.violations, n) }

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func TestSplitSingleFragmentWhenPayloadFits(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)

	frags, err := Split([]byte("short"), wire.TypeDiscovery, wire.Normal, kp, node(1), ids.MessageID{1})
	require.NoError(err)
	require.Len(frags, 1)
	require.Equal(uint16(1), frags[0].Header.TotalFragments)
}

func TestSplitMultipleFragmentsForLargePayload(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)

	payload := make([]byte, wire.PayloadCapFor(wire.TypeUTXOTx)*3+10)
	frags, err := Split(payload, wire.TypeUTXOTx, wire.High, kp, node(1), ids.MessageID{2})
	require.NoError(err)
	require.Len(frags, 4)
	for i, f := range frags {
		require.Equal(uint16(i), f.Header.SequenceNo)
	}
}

func TestFragmenterReceiveReassemblesCompleteMessage(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)
	sender := node(1)
	keys := staticKeys{nodeID: sender, pub: kp.Pub}

	f := New(DefaultConfig(), nil, nil, keys, nil)
	payload := make([]byte, wire.PayloadCapFor(wire.TypeUTXOTx)*2+5)
	for i := range payload {
		payload[i] = byte(i)
	}
	frags, err := Split(payload, wire.TypeUTXOTx, wire.High, kp, sender, ids.MessageID{3})
	require.NoError(err)

	now := time.Now()
	var lastSess *Session
	var lastComplete bool
	for _, frag := range frags {
		sess, complete, err := f.Receive(frag, now)
		require.NoError(err)
		lastSess, lastComplete = sess, complete
	}
	require.True(lastComplete)
	require.Equal(Complete, lastSess.State)
	require.Equal(payload, lastSess.Reassemble())
}

func TestFragmenterReceiveRejectsBadSignature(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)
	impostor, err := crypto.GenerateKeyPair()
	require.NoError(err)
	sender := node(2)
	keys := staticKeys{nodeID: sender, pub: kp.Pub}
	misbehav := &recordingMisbehavior{}

	f := New(DefaultConfig(), nil, nil, keys, misbehav)
	frags, err := Split([]byte("x"), wire.TypeDiscovery, wire.Normal, impostor, sender, ids.MessageID{4})
	require.NoError(err)

	_, _, err = f.Receive(frags[0], time.Now())
	require.Error(err)
	require.Len(misbehav.violations, 1)
}

func TestFragmenterReceiveRejectsOutOfRangeSequenceNo(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)
	sender := node(5)
	keys := staticKeys{nodeID: sender, pub: kp.Pub}
	misbehav := &recordingMisbehavior{}

	f := New(DefaultConfig(), nil, nil, keys, misbehav)

	// Constructed directly rather than via Split/wire.DecodeFragment, the
	// way a caller handing Receive an already-decoded wire.Fragment
	// would: total_fragments=1 but sequence_no=5, which decoding would
	// normally have rejected.
	h := wire.FragmentHeader{
		MessageID:      ids.MessageID{6},
		SequenceNo:     5,
		TotalFragments: 1,
		MessageType:    wire.TypeDiscovery,
		Priority:       wire.Normal,
		NodeID:         sender,
	}
	payload := []byte("x")
	sig, err := kp.Sign(h.SignedContent(payload))
	require.NoError(err)
	h.Signature = sig

	_, _, err = f.Receive(wire.Fragment{Header: h, Payload: payload}, time.Now())
	require.Error(err)
	require.Len(misbehav.violations, 1)
}

func TestFragmenterReceiveEnforcesPerSenderRateLimit(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)
	sender := node(3)
	keys := staticKeys{nodeID: sender, pub: kp.Pub}
	misbehav := &recordingMisbehavior{}

	cfg := DefaultConfig()
	cfg.FragmentsPerMinute = 1
	f := New(cfg, nil, nil, keys, misbehav)

	now := time.Now()
	frag1, err := Split([]byte("a"), wire.TypeDiscovery, wire.Normal, kp, sender, ids.MessageID{5})
	require.NoError(err)
	_, _, err = f.Receive(frag1[0], now)
	require.NoError(err)

	frag2, err := Split([]byte("b"), wire.TypeDiscovery, wire.Normal, kp, sender, ids.MessageID{6})
	require.NoError(err)
	_, _, err = f.Receive(frag2[0], now)
	require.Error(err)
	require.Len(misbehav.spam, 1)
}

func TestApplyAckCumulativeClearsUpToHighest(t *testing.T) {
	require := require.New(t)
	s := newSession(ids.MessageID{1}, 4, wire.Normal, wire.TypeUTXOTx, node(1), time.Now())
	ack := AckFrame{Kind: AckCumulative, MessageID: s.MessageID, AckList: []uint16{2}}
	ApplyAck(s, ack)
	require.Equal([]uint16{3}, s.Missing())
}

func TestApplyAckSelectiveClearsOnlyListed(t *testing.T) {
	require := require.New(t)
	s := newSession(ids.MessageID{1}, 4, wire.Normal, wire.TypeUTXOTx, node(1), time.Now())
	ack := AckFrame{Kind: AckSelective, MessageID: s.MessageID, AckList: []uint16{1, 3}}
	ApplyAck(s, ack)
	require.Equal([]uint16{0, 2}, s.Missing())
}

func TestVerifyAckRejectsStaleTimestamp(t *testing.T) {
	require := require.New(t)
	now := time.Now()
	a := AckFrame{Timestamp: now.Add(-time.Minute)}
	err := VerifyAck(a, func() bool { return true }, nil, nil, now)
	require.Error(err)
}

func TestVerifyAckRejectsUnoriginatedMessageID(t *testing.T) {
	require := require.New(t)
	now := time.Now()
	a := AckFrame{Timestamp: now}
	err := VerifyAck(a, func() bool { return true }, originSet{}, nil, now)
	require.Error(err)
}

func TestVerifyAckAttributesInvalidMessagesOnFailure(t *testing.T) {
	require := require.New(t)
	now := time.Now()
	sender := node(7)
	sink := &recordingMisbehavior{}
	a := AckFrame{NodeID: sender, Timestamp: now}
	err := VerifyAck(a, func() bool { return false }, nil, sink, now)
	require.Error(err)
	require.Equal([]ids.NodeID{sender}, sink.violations)
}

type originSet map[ids.MessageID]bool

func (o originSet) Originated(id ids.MessageID) bool { return o[id] }

func TestShouldRequestRetransmissionRequiresElapsedRTT(t *testing.T) {
	require := require.New(t)
	s := newSession(ids.MessageID{1}, 2, wire.Normal, wire.TypeUTXOTx, node(1), time.Now())
	now := s.CreatedAt
	require.False(ShouldRequestRetransmission(s, time.Second, now))
	require.True(ShouldRequestRetransmission(s, time.Second, now.Add(2*time.Second)))
}

func TestShouldRequestRetransmissionFalseWhenComplete(t *testing.T) {
	require := require.New(t)
	s := newSession(ids.MessageID{1}, 1, wire.Normal, wire.TypeUTXOTx, node(1), time.Now())
	s.accept(0, []byte("x"), s.CreatedAt)
	require.False(ShouldRequestRetransmission(s, 0, s.CreatedAt))
}

func TestNextRetransmissionDelayGrowsAndRespectsCap(t *testing.T) {
	require := require.New(t)
	p := DefaultRetryPolicy()
	d0 := NextRetransmissionDelay(p, 0)
	d5 := NextRetransmissionDelay(p, 5)
	require.LessOrEqual(d0, p.Cap)
	require.LessOrEqual(d5, p.Cap)
	require.GreaterOrEqual(d5, d0)
}

func TestAdaptRetryPolicyRaisesUnderPoorConditions(t *testing.T) {
	require := require.New(t)
	base := DefaultRetryPolicy()
	adapted := AdaptRetryPolicy(base, 0.3, 0.8, 500*time.Millisecond)
	require.Greater(adapted.MaxAttempts, base.MaxAttempts)
	require.Greater(adapted.Cap, base.Cap)
	require.Greater(adapted.Base, base.Base)
}

func TestPriorityForAssignsExpectedLevels(t *testing.T) {
	require := require.New(t)
	require.Equal(wire.Critical, PriorityFor(wire.TypeUTXOBlockFragment, false))
	require.Equal(wire.High, PriorityFor(wire.TypeUTXOTx, false))
	require.Equal(wire.Critical, PriorityFor(wire.TypeUTXOTx, true))
	require.Equal(wire.Normal, PriorityFor(wire.TypeDiscovery, false))
	require.Equal(wire.Low, PriorityFor(wire.TypeFragmentAck, false))
}
