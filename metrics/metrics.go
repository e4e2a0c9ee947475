// Package metrics groups the prometheus collectors each subsystem
// registers at construction time, the way the teacher's
// snow/networking/sender.sender and chain_router take a
// prometheus.Registerer rather than reaching for package-level metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Fragment holds the L5 fragmenter's collectors.
type Fragment struct {
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsFailed    prometheus.Counter
	FragmentsRecv     prometheus.Counter
	RetransmitsSent   prometheus.Counter
	RateLimited       prometheus.Counter
}

func NewFragment(reg prometheus.Registerer, namespace string) (*Fragment, error) {
	m := &Fragment{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fragment", Name: "sessions_started_total",
		}),
		SessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fragment", Name: "sessions_completed_total",
		}),
		SessionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fragment", Name: "sessions_failed_total",
		}),
		FragmentsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fragment", Name: "fragments_received_total",
		}),
		RetransmitsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fragment", Name: "retransmits_sent_total",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fragment", Name: "rate_limited_total",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.SessionsStarted, m.SessionsCompleted, m.SessionsFailed,
		m.FragmentsRecv, m.RetransmitsSent, m.RateLimited,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Delivery holds the L8 reliable-delivery collectors.
type Delivery struct {
	Acknowledged   prometheus.Counter
	Retried        prometheus.Counter
	DeadLettered   prometheus.Counter
	BreakerOpens   prometheus.Counter
	QueueHealth    prometheus.Gauge
	Inflight       prometheus.Gauge
}

func NewDelivery(reg prometheus.Registerer, namespace string) (*Delivery, error) {
	m := &Delivery{
		Acknowledged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "acknowledged_total",
		}),
		Retried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "retried_total",
		}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "dead_lettered_total",
		}),
		BreakerOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "circuit_breaker_opens_total",
		}),
		QueueHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "queue_health",
		}),
		Inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "inflight",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.Acknowledged, m.Retried, m.DeadLettered, m.BreakerOpens, m.QueueHealth, m.Inflight,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Peer holds the L10 peer-manager collectors.
type Peer struct {
	Discovered  prometheus.Counter
	Banned      prometheus.Counter
	Connected   prometheus.Gauge
	AvgScore    prometheus.Gauge
}

func NewPeer(reg prometheus.Registerer, namespace string) (*Peer, error) {
	m := &Peer{
		Discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "peer", Name: "discovered_total",
		}),
		Banned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "peer", Name: "banned_total",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "connected",
		}),
		AvgScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "avg_score",
		}),
	}
	for _, c := range []prometheus.Collector{m.Discovered, m.Banned, m.Connected, m.AvgScore} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
