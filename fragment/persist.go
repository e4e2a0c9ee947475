package fragment

import (
	"encoding/json"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/store"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// sessionSnapshot is the durable form of a Session, stored at spec §6's
// session/<message_id> key so an in-flight reassembly survives a
// restart rather than forcing every sender to refragment from scratch.
type sessionSnapshot struct {
	MessageID      ids.MessageID
	TotalFragments uint16
	Received       []bool
	Payloads       [][]byte
	Priority       wire.Priority
	MessageType    wire.MessageType
	State          State
	SenderID       ids.NodeID
	CreatedAt      time.Time
	LastArrival    time.Time
}

func (s *Session) snapshot() sessionSnapshot {
	return sessionSnapshot{
		MessageID:      s.MessageID,
		TotalFragments: s.TotalFragments,
		Received:       s.received,
		Payloads:       s.payloadSlots,
		Priority:       s.Priority,
		MessageType:    s.MessageType,
		State:          s.State,
		SenderID:       s.SenderID,
		CreatedAt:      s.CreatedAt,
		LastArrival:    s.LastArrival,
	}
}

func (snap sessionSnapshot) restore() *Session {
	return &Session{
		MessageID:      snap.MessageID,
		TotalFragments: snap.TotalFragments,
		received:       snap.Received,
		payloadSlots:   snap.Payloads,
		Priority:       snap.Priority,
		MessageType:    snap.MessageType,
		State:          snap.State,
		SenderID:       snap.SenderID,
		CreatedAt:      snap.CreatedAt,
		LastArrival:    snap.LastArrival,
	}
}

// AttachStore makes f persist every session mutation to kv, so restart
// recovery (spec §6) can rebuild in-flight reassembly state instead of
// silently dropping it. Opt-in: a Fragmenter with no attached store
// behaves exactly as before.
func (f *Fragmenter) AttachStore(kv store.KV) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv = kv
}

func (f *Fragmenter) persistSession(s *Session) {
	if f.kv == nil {
		return
	}
	raw, err := json.Marshal(s.snapshot())
	if err != nil {
		f.log.Warn("fragment: failed to encode session for persistence")
		return
	}
	if err := f.kv.Put(store.SessionKey(s.MessageID.Bytes()), raw); err != nil {
		f.log.Warn("fragment: failed to persist session")
	}
}

func (f *Fragmenter) deleteSessionRecord(id ids.MessageID) {
	if f.kv == nil {
		return
	}
	if err := f.kv.Delete(store.SessionKey(id.Bytes())); err != nil {
		f.log.Warn("fragment: failed to delete persisted session")
	}
}

// RestoreSessions replays every persisted reassembly session from kv
// into f. Callers invoke this once at startup, before the first
// Receive, to recover sessions that were in flight when the process
// last stopped.
func RestoreSessions(f *Fragmenter, kv store.KV) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	it := kv.NewIterator([]byte("session/"))
	defer it.Release()
	for it.Next() {
		var snap sessionSnapshot
		if err := json.Unmarshal(it.Value(), &snap); err != nil {
			return err
		}
		s := snap.restore()
		f.sessions[s.MessageID] = s
		bySender, ok := f.sessionsBySender[s.SenderID]
		if !ok {
			bySender = make(map[ids.MessageID]struct{})
			f.sessionsBySender[s.SenderID] = bySender
		}
		bySender[s.MessageID] = struct{}{}
	}
	return it.Error()
}
