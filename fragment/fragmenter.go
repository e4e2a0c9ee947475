package fragment

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/logging"
	"github.com/grekinsky/lorachain-sub002/lorerr"
	"github.com/grekinsky/lorachain-sub002/metrics"
	"github.com/grekinsky/lorachain-sub002/store"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// KeyResolver looks up the known public key for a claimed sender, so
// the fragmenter can verify fragment/ACK/NACK signatures instead of
// accepting "len(sig) > 0" (spec §9 redesign: real signature
// verification everywhere).
type KeyResolver interface {
	PublicKey(nodeID ids.NodeID) (*btcec.PublicKey, bool)
}

// MisbehaviorSink receives spam/protocol-violation attributions destined
// for the peer manager (spec §4.4: rate-limit violations are attributed
// as "spam" misbehavior).
type MisbehaviorSink interface {
	ReportSpam(sender ids.NodeID)
	ReportProtocolViolation(sender ids.NodeID)
}

// Fragmenter owns every in-flight reassembly session. It is mutated only
// by its own methods under its own lock (spec §5 ownership rule).
type Fragmenter struct {
	mu       sync.Mutex
	cfg      Config
	log      logging.Logger
	metrics  *metrics.Fragment
	keys     KeyResolver
	misbehav MisbehaviorSink
	kv       store.KV // optional write-through persistence target, see AttachStore

	sessions      map[ids.MessageID]*Session
	sessionsBySender map[ids.NodeID]map[ids.MessageID]struct{}
	limiters      map[ids.NodeID]*rate.Limiter
}

func New(cfg Config, log logging.Logger, m *metrics.Fragment, keys KeyResolver, misbehav MisbehaviorSink) *Fragmenter {
	if log == nil {
		log = logging.NoLog
	}
	return &Fragmenter{
		cfg:              cfg,
		log:              log,
		metrics:          m,
		keys:             keys,
		misbehav:         misbehav,
		sessions:         make(map[ids.MessageID]*Session),
		sessionsBySender: make(map[ids.NodeID]map[ids.MessageID]struct{}),
		limiters:         make(map[ids.NodeID]*rate.Limiter),
	}
}

// Split divides payload into signed, wire-ready fragments sized per
// spec §4.4's message-type payload caps. A payload that fits in one
// fragment yields total_fragments=1 (spec §8 boundary behavior).
func Split(payload []byte, mt wire.MessageType, priority wire.Priority, signer *crypto.KeyPair, senderID ids.NodeID, msgID ids.MessageID) ([]wire.Fragment, error) {
	cap := wire.PayloadCapFor(mt)
	total := (len(payload) + cap - 1) / cap
	if total == 0 {
		total = 1
	}
	if total > 1<<16-1 {
		return nil, lorerr.Validationf("fragment: payload requires too many fragments")
	}

	frags := make([]wire.Fragment, 0, total)
	for seq := 0; seq < total; seq++ {
		start := seq * cap
		end := start + cap
		if end > len(payload) {
			end = len(payload)
		}
		slice := payload[start:end]

		h := wire.FragmentHeader{
			MessageID:      msgID,
			SequenceNo:     uint16(seq),
			TotalFragments: uint16(total),
			MessageType:    mt,
			Priority:       priority,
			NodeID:         senderID,
		}
		sig, err := signer.Sign(h.SignedContent(slice))
		if err != nil {
			return nil, err
		}
		h.Signature = sig
		frags = append(frags, wire.Fragment{Header: h, Payload: slice})
	}
	return frags, nil
}

func (f *Fragmenter) limiterFor(sender ids.NodeID) *rate.Limiter {
	l, ok := f.limiters[sender]
	if !ok {
		perSecond := rate.Limit(float64(f.cfg.FragmentsPerMinute) / 60.0)
		l = rate.NewLimiter(perSecond, f.cfg.FragmentsPerMinute)
		f.limiters[sender] = l
	}
	return l
}

// Receive ingests one fragment: verifies its signature, enforces
// per-sender rate limits, creates or updates the reassembly session,
// and returns whether the session just completed.
func (f *Fragmenter) Receive(frag wire.Fragment, now time.Time) (*Session, bool, error) {
	h := frag.Header

	pub, ok := f.keys.PublicKey(h.NodeID)
	if !ok || !crypto.Verify(pub, h.SignedContent(frag.Payload), h.Signature) {
		if f.misbehav != nil {
			f.misbehav.ReportProtocolViolation(h.NodeID)
		}
		return nil, false, lorerr.ProtocolViolationf("fragment: signature verification failed")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.limiterFor(h.NodeID).AllowN(now, 1) {
		if f.metrics != nil {
			f.metrics.RateLimited.Inc()
		}
		if f.misbehav != nil {
			f.misbehav.ReportSpam(h.NodeID)
		}
		return nil, false, lorerr.RateLimitedf("fragment: sender %s exceeded fragments_per_minute", h.NodeID)
	}

	sess, exists := f.sessions[h.MessageID]
	if !exists {
		if bySender := f.sessionsBySender[h.NodeID]; len(bySender) >= f.cfg.MaxSessionsPerSender {
			if f.misbehav != nil {
				f.misbehav.ReportSpam(h.NodeID)
			}
			return nil, false, lorerr.RateLimitedf("fragment: sender %s exceeded max_sessions_per_sender", h.NodeID)
		}
		if len(f.sessions) >= f.cfg.MaxMemorySessions {
			f.evictOne(PriorityFor(h.MessageType, false))
		}
		sess = newSession(h.MessageID, h.TotalFragments, h.Priority, h.MessageType, h.NodeID, now)
		f.sessions[h.MessageID] = sess
		bySender, ok := f.sessionsBySender[h.NodeID]
		if !ok {
			bySender = make(map[ids.MessageID]struct{})
			f.sessionsBySender[h.NodeID] = bySender
		}
		bySender[h.MessageID] = struct{}{}
		if f.metrics != nil {
			f.metrics.SessionsStarted.Inc()
		}
	}

	if sess.TotalFragments != h.TotalFragments {
		// Inconsistent total_fragments for the same message_id: discard
		// (spec §3 Fragment invariant).
		if f.misbehav != nil {
			f.misbehav.ReportProtocolViolation(h.NodeID)
		}
		return nil, false, lorerr.ProtocolViolationf("fragment: inconsistent total_fragments for %s", h.MessageID)
	}
	if h.SequenceNo >= h.TotalFragments {
		// wire.DecodeFragment already rejects this for decoded wire
		// frames, but Receive is exported and takes an already-decoded
		// wire.Fragment, so a directly-constructed one must be checked
		// here too.
		if f.misbehav != nil {
			f.misbehav.ReportProtocolViolation(h.NodeID)
		}
		return nil, false, lorerr.ProtocolViolationf("fragment: sequence_no %d out of range for total_fragments %d", h.SequenceNo, h.TotalFragments)
	}

	sess.accept(h.SequenceNo, frag.Payload, now)
	if f.metrics != nil {
		f.metrics.FragmentsRecv.Inc()
	}

	completed := sess.State == Complete
	if completed {
		f.forget(h.MessageID, h.NodeID)
		if f.metrics != nil {
			f.metrics.SessionsCompleted.Inc()
		}
	} else {
		f.persistSession(sess)
	}
	return sess, completed, nil
}

func (f *Fragmenter) forget(id ids.MessageID, sender ids.NodeID) {
	delete(f.sessions, id)
	if bySender, ok := f.sessionsBySender[sender]; ok {
		delete(bySender, id)
		if len(bySender) == 0 {
			delete(f.sessionsBySender, sender)
		}
	}
	f.deleteSessionRecord(id)
}

// Session returns the session for id, if any.
func (f *Fragmenter) Session(id ids.MessageID) (*Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	return s, ok
}

// Fail transitions a session to Failed (called after MaxAttempts
// retransmission attempts, spec §4.4) and evicts it.
func (f *Fragmenter) Fail(id ids.MessageID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return
	}
	s.State = Failed
	f.forget(id, s.SenderID)
	if f.metrics != nil {
		f.metrics.SessionsFailed.Inc()
	}
}

// evictOne drops the lowest-priority, oldest incomplete session, never
// evicting a >50%-complete session if a lower-priority alternative
// exists (spec §4.4). Caller must hold f.mu. incoming is the priority
// of the session about to be admitted; the choice of victim does not
// depend on it.
func (f *Fragmenter) evictOne(incoming wire.Priority) {
	var worstID ids.MessageID
	var worst *Session
	for id, s := range f.sessions {
		if worst == nil || isWorseCandidate(s, worst) {
			worstID, worst = id, s
		}
	}
	if worst == nil {
		return
	}
	f.log.Debug("evicting reassembly session under memory pressure",
		zap.String("messageID", worstID.String()),
	)
	f.forget(worstID, worst.SenderID)
}

// isWorseCandidate reports whether a is a better eviction candidate than
// b: lower priority first; within one priority, a session that is not
// >50% complete before one that is; then older. A >50%-complete session
// is thus only evicted when every session of the lowest priority
// present is also >50% complete.
func isWorseCandidate(a, b *Session) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority // higher enum value == lower priority
	}
	aProtected := a.PercentComplete() > 0.5
	bProtected := b.PercentComplete() > 0.5
	if aProtected != bProtected {
		return bProtected // prefer evicting the one that's NOT protected
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
