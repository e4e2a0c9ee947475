package peer

import "math"

// ScoreWeights are the w_r/w_p/w_b weights of spec §4.9's composite
// formula.
type ScoreWeights struct {
	Reliability float64
	Performance float64
	Behavior    float64
	MinScore    float64
	MaxScore    float64
	DecayRate   float64 // per-day exponential decay applied each scoring interval
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Reliability: 1, Performance: 1, Behavior: 1, MinScore: 0, MaxScore: 100, DecayRate: 0.05}
}

// ReliabilityInputs feeds the reliability sub-score (spec §4.9).
type ReliabilityInputs struct {
	Uptime                float64 // fraction [0,1]
	ConnectionSuccessRate float64
	MessageDeliveryRate   float64
}

func reliability(in ReliabilityInputs) float64 {
	return 0.4*in.Uptime + 0.3*in.ConnectionSuccessRate + 0.3*in.MessageDeliveryRate
}

// latencyScore maps round-trip latency to [0,1] per spec §4.9's table.
func latencyScore(latencyMs float64) float64 {
	switch {
	case latencyMs <= 50:
		return 1.0
	case latencyMs <= 100:
		return 0.8
	case latencyMs <= 200:
		return 0.6
	case latencyMs <= 500:
		return 0.4
	case latencyMs <= 1000:
		return 0.2
	default:
		return 0.1
	}
}

// signalScore maps RSSI (dBm) to [0,1] per spec §4.9's table.
func signalScore(dBm float64) float64 {
	switch {
	case dBm >= -60:
		return 1.0
	case dBm >= -70:
		return 0.8
	case dBm >= -80:
		return 0.6
	case dBm >= -90:
		return 0.4
	case dBm >= -100:
		return 0.2
	default:
		return 0.1
	}
}

// PerformanceInputs feeds the performance sub-score (spec §4.9).
type PerformanceInputs struct {
	LatencyMs       float64
	ThroughputScore float64 // pre-normalized [0,1] by the caller
	SignalDBm       *float64
}

func performance(in PerformanceInputs) float64 {
	signal := 1.0 // wired peers with no signal reading score neutrally
	if in.SignalDBm != nil {
		signal = signalScore(*in.SignalDBm)
	}
	return 0.4*latencyScore(in.LatencyMs) + 0.3*in.ThroughputScore + 0.3*signal
}

// BehaviorInputs feeds the behavior sub-score (spec §4.9).
type BehaviorInputs struct {
	Invalid          int
	Received         int
	PropagationScore float64 // pre-normalized [0,1] by the caller
	ComplianceScore  float64 // pre-normalized [0,1] by the caller
}

func behavior(in BehaviorInputs) float64 {
	validRate := 1.0
	if in.Received > 0 {
		validRate = 1 - float64(in.Invalid)/float64(in.Received)
	}
	return 0.4*validRate + 0.3*in.PropagationScore + 0.3*in.ComplianceScore
}

// Score computes the spec §4.9 composite score, clipped to
// [MinScore, MaxScore] and decayed by exp(-decay_rate * deltaDays)
// since the peer's last scoring pass.
func Score(w ScoreWeights, r ReliabilityInputs, p PerformanceInputs, b BehaviorInputs, deltaDays float64) float64 {
	sumW := w.Reliability + w.Performance + w.Behavior
	if sumW == 0 {
		sumW = 1
	}
	overall := (w.Reliability*reliability(r) + w.Performance*performance(p) + w.Behavior*behavior(b)) / sumW
	decay := math.Exp(-w.DecayRate * deltaDays)
	scaled := overall * decay * (w.MaxScore - w.MinScore) + w.MinScore
	if scaled < w.MinScore {
		scaled = w.MinScore
	}
	if scaled > w.MaxScore {
		scaled = w.MaxScore
	}
	return scaled
}
