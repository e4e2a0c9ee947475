package fragment

import (
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// backoffFor builds a cenkalti/backoff ExponentialBackOff configured to
// the spec §4.4 shape (base, multiplier, hard cap, no randomization) and
// already advanced to the given attempt number, so repeated calls for
// the same session reproduce the same growth curve independent of call
// order; a uniform jitter in [0, JitterMax) is then added before the cap.
func backoffFor(p RetryPolicy, attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.Cap
	b.MaxElapsedTime = 0 // the fragmenter tracks MaxAttempts itself
	b.RandomizationFactor = 0
	b.Reset()

	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = b.NextBackOff()
	}
	if p.JitterMax > 0 {
		d += time.Duration(rand.Int63n(int64(p.JitterMax)))
	}
	if d > p.Cap {
		d = p.Cap
	}
	return d
}

// ShouldRequestRetransmission reports whether a retransmission request
// should fire now: the session has a non-empty missing set and more
// than rttEstimate has elapsed since the last arrival (spec §4.4).
func ShouldRequestRetransmission(s *Session, rttEstimate time.Duration, now time.Time) bool {
	if s.State != Receiving {
		return false
	}
	if len(s.Missing()) == 0 {
		return false
	}
	return now.Sub(s.LastArrival) > rttEstimate
}

// NextRetransmissionDelay computes the scheduling delay for the given
// policy and attempt count (spec §4.4 formula, via backoffFor).
func NextRetransmissionDelay(p RetryPolicy, attempt int) time.Duration {
	return backoffFor(p, attempt)
}
