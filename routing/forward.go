package routing

import (
	"time"

	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/queue"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// ForwardingEntry is one message queued for onward transmission along a
// route, carrying its accumulated path vector for loop detection at the
// next hop (spec §4.8 forwarding pipeline).
type ForwardingEntry struct {
	MessageID   ids.MessageID
	Destination ids.NodeID
	NextHop     ids.NodeID
	Path        PathVector
	TTL         int
	MessageType wire.MessageType
	Priority    wire.Priority
	Payload     []byte
	Signature   [64]byte
}

// SignedContent is the bytes a forwarding entry's signature covers.
func (e ForwardingEntry) SignedContent() []byte {
	buf := make([]byte, 0, 16+20+20+1+1+len(e.Payload))
	buf = append(buf, e.MessageID[:]...)
	buf = append(buf, e.Destination[:]...)
	buf = append(buf, e.NextHop[:]...)
	buf = append(buf, byte(e.TTL))
	buf = append(buf, byte(e.MessageType))
	buf = append(buf, e.Payload...)
	return buf
}

// Sign signs the entry's content with signer.
func (e *ForwardingEntry) Sign(signer *crypto.KeyPair) error {
	sig, err := signer.Sign(e.SignedContent())
	if err != nil {
		return err
	}
	e.Signature = sig
	return nil
}

// Enqueue places the entry on the outbound priority queue with the TTL
// it was given as the queue item's time-to-live budget (spec §4.5/§4.8:
// the forwarding pipeline hands off into the priority queue, not a
// separate outbound path).
func Enqueue(q *queue.Queue, e ForwardingEntry, emergency bool, ttl time.Duration, now time.Time) error {
	return q.Enqueue(queue.Item{
		ID:        e.MessageID,
		Priority:  e.Priority,
		Emergency: emergency,
		CreatedAt: now,
		TTL:       ttl,
		Size:      len(e.Payload),
		Payload:   e.Payload,
	})
}

// AckTimeout reports whether a forwarded entry sent at sentAt has
// exceeded rttEstimate without an ACK, signaling the caller to apply
// the §4.7 retry policy for the entry's message type via
// delivery.Tracker.
func AckTimeout(sentAt time.Time, rttEstimate time.Duration, now time.Time) bool {
	return now.Sub(sentAt) > rttEstimate
}
