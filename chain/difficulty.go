package chain

// DifficultyParams captures the subset of genesis network_params that
// drive the adjustment schedule (spec §4.3).
type DifficultyParams struct {
	TargetBlockTimeS int64
	AdjustmentPeriod uint64
	MaxDifficultyRatio float64
	MinDifficulty      uint32
	MaxDifficulty      uint32
}

// ShouldAdjust reports whether height is an adjustment boundary: every
// AdjustmentPeriod-th height.
func (p DifficultyParams) ShouldAdjust(height uint64) bool {
	return p.AdjustmentPeriod > 0 && height%p.AdjustmentPeriod == 0
}

// NextDifficulty computes the recomputed difficulty at an adjustment
// boundary: new = current * (target_timespan / actual_timespan),
// clamped to [min,max] and to a ratio of 1/maxRatio..maxRatio relative
// to current, then floored (spec §4.3).
func (p DifficultyParams) NextDifficulty(current uint32, firstTimestamp, lastTimestamp int64) uint32 {
	targetTimespan := p.TargetBlockTimeS * int64(p.AdjustmentPeriod)
	actualTimespan := lastTimestamp - firstTimestamp
	if actualTimespan <= 0 {
		actualTimespan = 1
	}

	ratio := float64(targetTimespan) / float64(actualTimespan)
	maxRatio := p.MaxDifficultyRatio
	if maxRatio <= 0 {
		maxRatio = 4
	}
	if ratio > maxRatio {
		ratio = maxRatio
	}
	if ratio < 1/maxRatio {
		ratio = 1 / maxRatio
	}

	next := uint32(float64(current) * ratio) // floored by integer truncation

	if p.MinDifficulty > 0 && next < p.MinDifficulty {
		next = p.MinDifficulty
	}
	if p.MaxDifficulty > 0 && next > p.MaxDifficulty {
		next = p.MaxDifficulty
	}
	return next
}

// Median11 returns the median of up to the last 11 timestamps, used for
// the "timestamp > median(last 11)" rule (spec §3/§8 invariant 1).
func Median11(timestamps []int64) int64 {
	n := len(timestamps)
	if n == 0 {
		return 0
	}
	if n > 11 {
		timestamps = timestamps[n-11:]
		n = 11
	}
	sorted := make([]int64, n)
	copy(sorted, timestamps)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted[n/2]
}
