// Package dutycycle implements the L7 per-region airtime budget and
// transmission gate (spec §4.6).
package dutycycle

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/grekinsky/lorachain-sub002/wire"
)

// Region bundles a regulatory duty-cycle fraction with the effective
// LoRa bitrate used to estimate airtime.
type Region struct {
	Name         string
	DutyFraction float64 // e.g. 0.01 for EU 1%
	EffectiveBps float64 // e.g. ~5470 for the configured spreading factor
	WindowPeriod time.Duration
}

// EURegion is the spec's worked example: EU 1% duty cycle.
func EURegion() Region {
	return Region{Name: "EU868", DutyFraction: 0.01, EffectiveBps: 5470, WindowPeriod: time.Hour}
}

// AirtimeFor estimates the on-air transmission time for bytes at the
// region's effective bitrate: ceil(bytes*8/effective_bps) (spec §4.6).
func (r Region) AirtimeFor(bytes int) time.Duration {
	seconds := math.Ceil(float64(bytes) * 8 / r.EffectiveBps)
	return time.Duration(seconds * float64(time.Second))
}

// airtimeMillis is the token unit the gate's bucket counts in:
// milliseconds of airtime, which keeps token counts small integers
// regardless of message size.
func airtimeMillis(d time.Duration) int {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return int(ms)
}

// Gate tracks rolling airtime consumption against the regional budget
// and decides admission, implemented as a token bucket over
// golang.org/x/time/rate: tokens are milliseconds of airtime, refilling
// at DutyFraction*1000 tokens/sec (i.e. DutyFraction of wall-clock
// time), with burst equal to one full window's budget — reproducing
// the "rolling window of consumed airtime" semantics of spec §4.6
// without hand-rolling a sliding window.
type Gate struct {
	mu            sync.Mutex
	region        Region
	bucket        *rate.Limiter
	emergencyMode bool
}

func NewGate(region Region) *Gate {
	refillPerSecond := rate.Limit(region.DutyFraction * 1000)
	burst := int(float64(region.WindowPeriod.Milliseconds()) * region.DutyFraction)
	if burst <= 0 {
		burst = 1
	}
	return &Gate{
		region: region,
		bucket: rate.NewLimiter(refillPerSecond, burst),
	}
}

// SetEmergencyMode toggles the node-wide emergency flag. Combined with
// a payload's duty_cycle_exempt flag, this is the only bypass path
// (spec §9 resolved Open Question).
func (g *Gate) SetEmergencyMode(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emergencyMode = on
}

func (g *Gate) EmergencyMode() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emergencyMode
}

// CanTransmit reports whether a payload of size bytes may be
// transmitted now at the given duty-cycle exemption. The only bypass of
// the duty-cycle gate is emergency_mode && duty_cycle_exempt — spec §9
// resolves this explicitly; there is no other fast path.
func (g *Gate) CanTransmit(bytes int, dutyCycleExempt bool, now time.Time) bool {
	if g.EmergencyMode() && dutyCycleExempt {
		return true
	}

	need := airtimeMillis(g.region.AirtimeFor(bytes))
	r := g.bucket.ReserveN(now, need)
	if !r.OK() {
		return false
	}
	if r.Delay() > 0 {
		r.Cancel()
		return false
	}
	return true
}

// NextTransmissionWindow returns the earliest future time at which a
// payload of the given size would be admitted (spec §4.6).
func (g *Gate) NextTransmissionWindow(bytes int, now time.Time) time.Time {
	need := airtimeMillis(g.region.AirtimeFor(bytes))
	r := g.bucket.ReserveN(now, need)
	defer r.Cancel()
	if !r.OK() {
		return now.Add(g.region.WindowPeriod)
	}
	return now.Add(r.Delay())
}

// DutyCycleExempt describes whether a message type/priority combination
// may ignore the duty cycle gate under emergency mode (spec §4.7:
// emergency mode flags Critical messages duty_cycle_exempt=true).
func DutyCycleExempt(priority wire.Priority, emergencyMode bool) bool {
	return emergencyMode && priority == wire.Critical
}
