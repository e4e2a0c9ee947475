package dutycycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAirtimeForRoundsUp(t *testing.T) {
	require := require.New(t)
	r := EURegion()
	// 1 byte * 8 bits / 5470 bps rounds up to 1 second.
	require.Equal(time.Second, r.AirtimeFor(1))
}

func TestGateAdmitsWithinBudgetThenRefuses(t *testing.T) {
	require := require.New(t)
	g := NewGate(EURegion())
	now := time.Now()

	// EU868 1% of a 1-hour window is 36s of airtime budget, refilling
	// at 10 tokens(ms)/sec with burst = 36000ms. A single small frame
	// should be admitted immediately.
	require.True(g.CanTransmit(10, false, now))

	// Each 10-byte frame costs ceil(80/5470)s = 1000ms, so 36 fit in the
	// burst at the same instant and the 37th is refused.
	for i := 1; i < 36; i++ {
		require.True(g.CanTransmit(10, false, now))
	}
	require.False(g.CanTransmit(10, false, now))
}

func TestGateRefusesOversizedBurst(t *testing.T) {
	require := require.New(t)
	g := NewGate(EURegion())
	now := time.Now()

	// A transmission requiring far more airtime than the full window
	// budget can never be admitted, even as the very first request.
	require.False(g.CanTransmit(100_000, false, now))
}

func TestEmergencyExemptionBypassesGate(t *testing.T) {
	require := require.New(t)
	g := NewGate(EURegion())
	now := time.Now()

	require.False(g.CanTransmit(100_000, true, now))
	g.SetEmergencyMode(true)
	require.True(g.CanTransmit(100_000, true, now))
}

func TestNonExemptStillGatedDuringEmergency(t *testing.T) {
	require := require.New(t)
	g := NewGate(EURegion())
	now := time.Now()
	g.SetEmergencyMode(true)

	require.False(g.CanTransmit(100_000, false, now))
}

func TestNextTransmissionWindowAfterBudgetExhausted(t *testing.T) {
	require := require.New(t)
	g := NewGate(EURegion())
	now := time.Now()

	// Exhaust the burst budget.
	for g.CanTransmit(1000, false, now) {
	}
	next := g.NextTransmissionWindow(1000, now)
	require.True(next.After(now))
}
