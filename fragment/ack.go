package fragment

import (
	"encoding/binary"
	"time"

	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// AckKind distinguishes cumulative ACK, selective ACK, and NACK (spec
// §4.4).
type AckKind int

const (
	AckCumulative AckKind = iota
	AckSelective
	Nack
)

// AckFrame is the signed acknowledgment/negative-acknowledgment carried
// for a message_id: cumulative ACKs acknowledge every sequence ≤ N,
// selective ACKs/NACKs list explicit indices.
type AckFrame struct {
	Kind      AckKind
	MessageID ids.MessageID
	AckList   []uint16
	Timestamp time.Time
	NodeID    ids.NodeID
	Signature [64]byte
}

// SignedContent is (type, message_id, ack_list, timestamp, node_id) per
// spec §4.4.
func (a AckFrame) SignedContent() []byte {
	buf := make([]byte, 0, 1+16+2*len(a.AckList)+8+20)
	buf = append(buf, byte(a.Kind))
	buf = append(buf, a.MessageID[:]...)
	for _, seq := range a.AckList {
		var v [2]byte
		binary.BigEndian.PutUint16(v[:], seq)
		buf = append(buf, v[:]...)
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(a.Timestamp.UnixMilli()))
	buf = append(buf, ts[:]...)
	buf = append(buf, a.NodeID[:]...)
	return buf
}

// Sign signs the frame's content with signer, filling NodeID/Signature.
func (a *AckFrame) Sign(signer *crypto.KeyPair, nodeID ids.NodeID) error {
	a.NodeID = nodeID
	sig, err := signer.Sign(a.SignedContent())
	if err != nil {
		return err
	}
	a.Signature = sig
	return nil
}

const ackTimestampSkew = 30 * time.Second

// OriginMessageIDs identifies message_ids this node originated, so ACKs
// for unknown message_ids can be flagged instead of blindly trusted
// (spec §4.4: "rejected ... if the ACK is for a message_id the node
// never originated, which increments invalid_messages for the sender").
type OriginMessageIDs interface {
	Originated(id ids.MessageID) bool
}

// VerifyAck validates signature, timestamp skew, and origin
// attribution, returning a ProtocolViolation on any failure. Every
// failure attributes invalid_messages to a.NodeID via misbehav, which
// may be nil (spec §4.4: "increments invalid_messages for the sender").
func VerifyAck(a AckFrame, verify func() bool, origins OriginMessageIDs, misbehav MisbehaviorSink, now time.Time) error {
	if now.Sub(a.Timestamp) > ackTimestampSkew || a.Timestamp.Sub(now) > ackTimestampSkew {
		if misbehav != nil {
			misbehav.ReportProtocolViolation(a.NodeID)
		}
		return lorerr.ProtocolViolationf("fragment: ack timestamp outside [-30s,+30s]")
	}
	if !verify() {
		if misbehav != nil {
			misbehav.ReportProtocolViolation(a.NodeID)
		}
		return lorerr.ProtocolViolationf("fragment: ack signature invalid")
	}
	if origins != nil && !origins.Originated(a.MessageID) {
		if misbehav != nil {
			misbehav.ReportProtocolViolation(a.NodeID)
		}
		return lorerr.ProtocolViolationf("fragment: ack for message_id never originated by this node")
	}
	return nil
}

// ApplyAck updates a sender-side session's missing set per spec §4.4:
// cumulative ACKs clear every sequence ≤ the highest acked index;
// selective ACKs/NACKs clear or flag exactly the listed indices.
// ApplyAck is idempotent (spec §5 ordering guarantee).
func ApplyAck(s *Session, a AckFrame) {
	switch a.Kind {
	case AckCumulative:
		if len(a.AckList) == 0 {
			return
		}
		highest := a.AckList[0]
		for _, seq := range a.AckList {
			if seq > highest {
				highest = seq
			}
		}
		for seq := uint16(0); seq <= highest && int(seq) < len(s.received); seq++ {
			s.received[seq] = true
		}
	case AckSelective:
		for _, seq := range a.AckList {
			if int(seq) < len(s.received) {
				s.received[seq] = true
			}
		}
	case Nack:
		// NACKed indices are explicitly missing: nothing to clear, but
		// callers use this to trigger immediate retransmission.
	}
	if s.isComplete() {
		s.State = Complete
	}
}

// RetransmissionRequest is the signed request emitted when a session's
// missing set becomes non-empty past rttEstimate (spec §4.4).
type RetransmissionRequest struct {
	MessageID        ids.MessageID
	MissingFragments []uint16
	NodeID           ids.NodeID
	Timestamp        time.Time
	Signature        [64]byte
}

func (r RetransmissionRequest) SignedContent() []byte {
	buf := make([]byte, 0, 16+2*len(r.MissingFragments)+20+8)
	buf = append(buf, r.MessageID[:]...)
	for _, seq := range r.MissingFragments {
		var v [2]byte
		binary.BigEndian.PutUint16(v[:], seq)
		buf = append(buf, v[:]...)
	}
	buf = append(buf, r.NodeID[:]...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(r.Timestamp.UnixMilli()))
	buf = append(buf, ts[:]...)
	return buf
}

// BuildRetransmissionRequest signs and returns the retransmission
// request for a session's current missing set.
func BuildRetransmissionRequest(s *Session, signer *crypto.KeyPair, nodeID ids.NodeID, now time.Time) (RetransmissionRequest, error) {
	r := RetransmissionRequest{
		MessageID:        s.MessageID,
		MissingFragments: s.Missing(),
		NodeID:           nodeID,
		Timestamp:        now,
	}
	sig, err := signer.Sign(r.SignedContent())
	if err != nil {
		return RetransmissionRequest{}, err
	}
	r.Signature = sig
	return r, nil
}
