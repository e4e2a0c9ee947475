package delivery

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/grekinsky/lorachain-sub002/fragment"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/logging"
	"github.com/grekinsky/lorachain-sub002/metrics"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// Tracker owns every PendingDelivery and the shared CircuitBreaker
// (spec §4.7). It is mutated only through its own methods (spec §5
// ownership rule).
type Tracker struct {
	mu            sync.Mutex
	log           logging.Logger
	metrics       *metrics.Delivery
	policies      map[wire.MessageType]QoSPolicy
	breaker       *CircuitBreaker
	emergencyMode bool
	pending       map[ids.MessageID]*PendingDelivery
}

func NewTracker(policies map[wire.MessageType]QoSPolicy, log logging.Logger, m *metrics.Delivery) *Tracker {
	if log == nil {
		log = logging.NoLog
	}
	if policies == nil {
		policies = DefaultQoSPolicies()
	}
	return &Tracker{
		log:      log,
		metrics:  m,
		policies: policies,
		breaker:  NewCircuitBreaker(),
		pending:  make(map[ids.MessageID]*PendingDelivery),
	}
}

func (t *Tracker) SetEmergencyMode(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emergencyMode = on
}

func (t *Tracker) policyFor(mt wire.MessageType) QoSPolicy {
	p := PolicyFor(t.policies, mt)
	if t.emergencyMode {
		p = EmergencyAdjust(p)
	}
	return p
}

// Begin records a new outbound delivery attempt and returns whether the
// destination's circuit breaker permits sending now. When it does not,
// the caller must not send and should retry after the returned time.
func (t *Tracker) Begin(id ids.MessageID, dest ids.NodeID, mt wire.MessageType, now time.Time) (allow bool, retryAfter time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.breaker.Allow(dest, now) {
		return false, t.breaker.NextRetryNotBefore(dest, now)
	}

	d, ok := t.pending[id]
	if !ok {
		d = &PendingDelivery{
			MessageID:   id,
			Destination: dest,
			Type:        mt,
			State:       Pending,
			FirstSentAt: now,
		}
		t.pending[id] = d
		if t.metrics != nil {
			t.metrics.Inflight.Inc()
		}
	}
	d.Attempts++
	d.LastSentAt = now
	policy := t.policyFor(mt)
	d.NextRetryAt = now.Add(fragment.NextRetransmissionDelay(policy.RetryPolicy, d.Attempts-1))
	return true, time.Time{}
}

// Ack records a successful acknowledgment: closes the destination's
// circuit breaker and retires the pending entry.
func (t *Tracker) Ack(id ids.MessageID, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pending[id]
	if !ok {
		return
	}
	t.breaker.RecordSuccess(d.Destination)
	d.State = Acknowledged
	delete(t.pending, id)
	if t.metrics != nil {
		t.metrics.Inflight.Dec()
		t.metrics.Acknowledged.Inc()
	}
}

// Fail records a delivery failure, recording the destination's breaker
// failure and dead-lettering the message once its policy's retry
// budget or max latency is exhausted. Returns true when the message
// should be retried (caller reschedules at NextRetryAt) and false when
// it was dead-lettered.
func (t *Tracker) Fail(id ids.MessageID, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pending[id]
	if !ok {
		return false
	}
	t.breaker.RecordFailure(d.Destination, now)

	policy := t.policyFor(d.Type)
	if d.Attempts >= policy.RetryPolicy.MaxAttempts || d.expired(policy, now) {
		d.State = DeadLetter
		delete(t.pending, id)
		if t.metrics != nil {
			t.metrics.Inflight.Dec()
			t.metrics.DeadLettered.Inc()
		}
		t.log.Warn("message dead-lettered", zap.String("messageID", id.String()))
		return false
	}
	if t.metrics != nil {
		t.metrics.Retried.Inc()
	}
	return true
}

// Pending returns a snapshot of the given message's delivery state, if
// tracked.
func (t *Tracker) Pending(id ids.MessageID) (PendingDelivery, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pending[id]
	if !ok {
		return PendingDelivery{}, false
	}
	return *d, true
}

// DueForRetry returns every pending delivery whose NextRetryAt has
// elapsed, for the caller to resubmit.
func (t *Tracker) DueForRetry(now time.Time) []PendingDelivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	var due []PendingDelivery
	for _, d := range t.pending {
		if d.State == Pending && !d.NextRetryAt.After(now) {
			due = append(due, *d)
		}
	}
	return due
}
