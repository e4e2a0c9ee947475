// Package wire implements the network message envelope and fragment
// header wire layouts of spec §6, plus the closed message-type union
// (spec §9 redesign: no any-typed payloads, no dynamic casts — the wire
// decoder returns a concrete tagged struct).
package wire

import (
	"encoding/binary"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// ProtocolVersion is the single supported wire protocol version. There
// is no backwards-compatible wire format (spec §1 Non-goals): a peer
// announcing any other version is disconnected.
const ProtocolVersion uint8 = 2

// MessageType is the closed tagged union discriminant for every message
// that crosses the wire (spec §6).
type MessageType uint8

const (
	TypeBeacon MessageType = iota
	TypeCapabilityAnnounce
	TypeVersionNegotiate
	TypeUTXOHeaderRequest
	TypeUTXOHeaderBatch
	TypeUTXOMerkleProof
	TypeUTXOSetRequest
	TypeUTXOSetSnapshot
	TypeUTXOSetDelta
	TypeUTXOBlockRequest
	TypeUTXOBlockResponse
	TypeUTXOBlockFragment
	TypeSyncStatus
	TypeCompressionNegotiate
	TypeDutyCycleStatus
	TypeRetransmissionRequest
	TypeFragmentAck
	TypeFragmentNack
	// TypeUTXOTx and TypeDiscovery extend the wire-level enum beyond the
	// base set spec §6 enumerates, to give the fragment-priority rules
	// of spec §4.4 (utxo_tx, discovery) and the flood priority rules of
	// spec §4.8 concrete message types to tag.
	TypeUTXOTx
	TypeDiscovery
)

func (t MessageType) String() string {
	names := [...]string{
		"beacon", "capability_announce", "version_negotiate",
		"utxo_header_request", "utxo_header_batch", "utxo_merkle_proof",
		"utxo_set_request", "utxo_set_snapshot", "utxo_set_delta",
		"utxo_block_request", "utxo_block_response", "utxo_block_fragment",
		"sync_status", "compression_negotiate", "duty_cycle_status",
		"retransmission_request", "fragment_ack", "fragment_nack",
		"utxo_tx", "discovery",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// Priority is the message priority level shared by the fragmenter,
// priority queue, QoS policy, and flood control.
type Priority uint8

const (
	Critical Priority = iota
	High
	Normal
	Low
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

// Envelope is the length-prefixed, binary network message envelope of
// spec §6: version(1) | type(1) | timestamp_ms(8) | node_id(32) |
// signature(64) | payload. node_id is stored as the full 32-byte form
// here (an ids.ID derived from the sender's identity key) since the
// envelope travels over TCP/WebSocket where the extra bytes versus the
// 20-byte mesh NodeID are not airtime-constrained.
type Envelope struct {
	Version     uint8
	Type        MessageType
	TimestampMs uint64
	NodeID      ids.ID
	Signature   [64]byte
	Payload     []byte
}

const envelopeHeaderLen = 1 + 1 + 8 + 32 + 64

// Encode serializes the envelope to its wire form.
func (e Envelope) Encode() []byte {
	buf := make([]byte, envelopeHeaderLen+len(e.Payload))
	buf[0] = e.Version
	buf[1] = byte(e.Type)
	binary.BigEndian.PutUint64(buf[2:10], e.TimestampMs)
	copy(buf[10:42], e.NodeID[:])
	copy(buf[42:106], e.Signature[:])
	copy(buf[106:], e.Payload)
	return buf
}

// SignedContent returns the bytes the envelope's signature covers:
// everything except the signature field itself.
func (e Envelope) SignedContent() []byte {
	buf := make([]byte, 1+1+8+32+len(e.Payload))
	buf[0] = e.Version
	buf[1] = byte(e.Type)
	binary.BigEndian.PutUint64(buf[2:10], e.TimestampMs)
	copy(buf[10:42], e.NodeID[:])
	copy(buf[42:], e.Payload)
	return buf
}

// Decode parses a wire-form envelope, rejecting anything shorter than
// the fixed header or announcing a mismatched protocol version (spec
// §1/§6: one protocol version is active at a time).
func Decode(b []byte) (Envelope, error) {
	if len(b) < envelopeHeaderLen {
		return Envelope{}, lorerr.ProtocolViolationf("wire: envelope shorter than header")
	}
	var e Envelope
	e.Version = b[0]
	if e.Version != ProtocolVersion {
		return Envelope{}, lorerr.ProtocolViolationf("wire: unsupported protocol version %d", e.Version)
	}
	e.Type = MessageType(b[1])
	e.TimestampMs = binary.BigEndian.Uint64(b[2:10])
	copy(e.NodeID[:], b[10:42])
	copy(e.Signature[:], b[42:106])
	e.Payload = append([]byte(nil), b[106:]...)
	return e, nil
}
