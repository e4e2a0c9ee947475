package wire

import (
	"encoding/binary"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// FragmentHeader is the fixed-width header of a LoRa fragment (spec §6):
// message_id(16) | sequence_no(2) | total_fragments(2) | message_type(1)
// | priority(1) | node_id(32) | signature(64), followed by payload.
type FragmentHeader struct {
	MessageID      ids.MessageID
	SequenceNo     uint16
	TotalFragments uint16
	MessageType    MessageType
	Priority       Priority
	NodeID         ids.NodeID
	Signature      [64]byte
}

const FragmentHeaderLen = 16 + 2 + 2 + 1 + 1 + 32 + 64

// PayloadCapFor returns the message-type-specific maximum fragment
// payload size (spec §4.4). With the FragmentHeaderLen (118-byte)
// header, a fragment filled to these caps encodes to 268-315 bytes.
func PayloadCapFor(t MessageType) int {
	switch t {
	case TypeUTXOTx:
		return 180
	case TypeUTXOBlockFragment:
		return 197
	case TypeUTXOMerkleProof:
		return 150
	default:
		return 150
	}
}

// SignedContent returns the bytes a fragment's signature covers:
// message_id || sequence_no || total_fragments || payload (spec §3).
func (h FragmentHeader) SignedContent(payload []byte) []byte {
	buf := make([]byte, 16+2+2+len(payload))
	copy(buf[0:16], h.MessageID[:])
	binary.BigEndian.PutUint16(buf[16:18], h.SequenceNo)
	binary.BigEndian.PutUint16(buf[18:20], h.TotalFragments)
	copy(buf[20:], payload)
	return buf
}

// Fragment is one signed, wire-ready slice of a larger logical message.
type Fragment struct {
	Header  FragmentHeader
	Payload []byte
}

// Encode serializes a fragment to its wire form.
func (f Fragment) Encode() []byte {
	buf := make([]byte, FragmentHeaderLen+len(f.Payload))
	h := f.Header
	copy(buf[0:16], h.MessageID[:])
	binary.BigEndian.PutUint16(buf[16:18], h.SequenceNo)
	binary.BigEndian.PutUint16(buf[18:20], h.TotalFragments)
	buf[20] = byte(h.MessageType)
	buf[21] = byte(h.Priority)
	copy(buf[22:54], h.NodeID[:])
	copy(buf[54:118], h.Signature[:])
	copy(buf[118:], f.Payload)
	return buf
}

// DecodeFragment parses a wire-form fragment.
func DecodeFragment(b []byte) (Fragment, error) {
	if len(b) < FragmentHeaderLen {
		return Fragment{}, lorerr.ProtocolViolationf("wire: fragment shorter than header")
	}
	var h FragmentHeader
	copy(h.MessageID[:], b[0:16])
	h.SequenceNo = binary.BigEndian.Uint16(b[16:18])
	h.TotalFragments = binary.BigEndian.Uint16(b[18:20])
	h.MessageType = MessageType(b[20])
	h.Priority = Priority(b[21])
	copy(h.NodeID[:], b[22:54])
	copy(h.Signature[:], b[54:118])
	payload := append([]byte(nil), b[118:]...)

	if h.SequenceNo >= h.TotalFragments {
		return Fragment{}, lorerr.ProtocolViolationf("wire: sequence_no %d >= total_fragments %d", h.SequenceNo, h.TotalFragments)
	}
	return Fragment{Header: h, Payload: payload}, nil
}
