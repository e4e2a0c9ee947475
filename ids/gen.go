package ids

import "github.com/google/uuid"

// GenerateMessageID returns a fresh random message id for messages whose
// id is not derived from content (discovery beacons, retransmission
// requests). Content-addressed messages (transactions, blocks) derive
// their MessageID from their txid/block hash instead.
func GenerateMessageID() MessageID {
	u := uuid.New()
	var m MessageID
	copy(m[:], u[:])
	return m
}
