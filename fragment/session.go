package fragment

import (
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// State is the reassembly session lifecycle (spec §3).
type State int

const (
	Receiving State = iota
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Receiving:
		return "receiving"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is per-message receive state, owned by the Fragmenter until
// it completes or times out (spec §3 Reassembly Session).
type Session struct {
	MessageID      ids.MessageID
	TotalFragments uint16
	received       []bool
	payloadSlots   [][]byte
	Priority       wire.Priority
	MessageType    wire.MessageType
	State          State
	RetryCount     int
	NextRetransmit time.Time
	CreatedAt      time.Time
	LastArrival    time.Time
	SenderID       ids.NodeID

	// duplicateCount tracks fragments received for a slot that was
	// already filled; spec §4.4 "duplicates are counted but not
	// overwritten".
	duplicateCount int
}

func newSession(messageID ids.MessageID, total uint16, priority wire.Priority, mt wire.MessageType, sender ids.NodeID, now time.Time) *Session {
	return &Session{
		MessageID:      messageID,
		TotalFragments: total,
		received:       make([]bool, total),
		payloadSlots:   make([][]byte, total),
		Priority:       priority,
		MessageType:    mt,
		State:          Receiving,
		CreatedAt:      now,
		LastArrival:    now,
		SenderID:       sender,
	}
}

// accept records a fragment's payload at seq if not already received.
// Returns true if this was a new (non-duplicate) arrival.
func (s *Session) accept(seq uint16, payload []byte, now time.Time) bool {
	if s.received[seq] {
		s.duplicateCount++
		return false
	}
	s.received[seq] = true
	s.payloadSlots[seq] = payload
	s.LastArrival = now
	if s.isComplete() {
		s.State = Complete
	}
	return true
}

func (s *Session) isComplete() bool {
	for _, ok := range s.received {
		if !ok {
			return false
		}
	}
	return true
}

// Missing recomputes {0..total-1} \ received (spec §4.4).
func (s *Session) Missing() []uint16 {
	var out []uint16
	for i, ok := range s.received {
		if !ok {
			out = append(out, uint16(i))
		}
	}
	return out
}

// PercentComplete reports how much of the session has arrived, used by
// the eviction policy (spec §4.4: never evict a >50% complete session
// if a lower-priority alternative exists).
func (s *Session) PercentComplete() float64 {
	if len(s.received) == 0 {
		return 0
	}
	n := 0
	for _, ok := range s.received {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(s.received))
}

// Reassemble concatenates the payload slots in order. Only valid once
// State == Complete.
func (s *Session) Reassemble() []byte {
	var out []byte
	for _, slot := range s.payloadSlots {
		out = append(out, slot...)
	}
	return out
}
