package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/wire"
)

func item(priority wire.Priority, emergency bool, createdAt time.Time, ttl time.Duration) Item {
	var id ids.MessageID
	return Item{ID: id, Priority: priority, Emergency: emergency, CreatedAt: createdAt, TTL: ttl}
}

func TestDequeueOrdersByPriorityThenFIFO(t *testing.T) {
	require := require.New(t)
	q := New(DefaultConfig())
	now := time.Now()
	require.NoError(q.Enqueue(item(wire.Low, false, now, 0)))
	require.NoError(q.Enqueue(item(wire.Critical, false, now, 0)))
	require.NoError(q.Enqueue(item(wire.High, false, now, 0)))

	first, ok := q.Dequeue()
	require.True(ok)
	require.Equal(wire.Critical, first.Priority)

	second, ok := q.Dequeue()
	require.True(ok)
	require.Equal(wire.High, second.Priority)

	third, ok := q.Dequeue()
	require.True(ok)
	require.Equal(wire.Low, third.Priority)

	_, ok = q.Dequeue()
	require.False(ok)
}

func TestEmergencyItemsPrecedeNormalWithinBucket(t *testing.T) {
	require := require.New(t)
	q := New(DefaultConfig())
	now := time.Now()
	require.NoError(q.Enqueue(item(wire.High, false, now, 0)))
	require.NoError(q.Enqueue(item(wire.High, true, now.Add(time.Second), 0)))

	first, ok := q.Dequeue()
	require.True(ok)
	require.True(first.Emergency)
}

func TestEnqueueEvictsLowerPriorityWhenBucketFull(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.PerPriorityCap[wire.Low] = 1
	cfg.TotalCap = 2
	q := New(cfg)
	now := time.Now()

	require.NoError(q.Enqueue(item(wire.Low, false, now, 0)))
	require.NoError(q.Enqueue(item(wire.High, false, now, 0)))
	require.Equal(2, q.Len())

	// Low bucket is full and total is at cap; an incoming Normal item
	// outranks Low, so the existing Low item is evicted to make room.
	require.NoError(q.Enqueue(item(wire.Normal, false, now.Add(time.Second), 0)))
	require.Equal(2, q.Len())
}

func TestEnqueueRejectsWhenNoEvictionCandidate(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.PerPriorityCap[wire.Critical] = 1
	cfg.TotalCap = 1
	q := New(cfg)
	now := time.Now()

	require.NoError(q.Enqueue(item(wire.Critical, false, now, 0)))
	err := q.Enqueue(item(wire.Critical, false, now, 0))
	require.Error(err, "no lower-priority bucket exists to evict from for an incoming Critical item")
}

func TestEmergencyReserveAllowsBeyondTotalCap(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig()
	cfg.TotalCap = 1
	cfg.EmergencyReserve = 1
	cfg.PerPriorityCap[wire.Critical] = 10
	q := New(cfg)
	now := time.Now()

	require.NoError(q.Enqueue(item(wire.Critical, false, now, 0)))
	require.NoError(q.Enqueue(item(wire.Critical, true, now, 0)))
	require.Equal(2, q.Len())

	err := q.Enqueue(item(wire.Critical, true, now, 0))
	require.Error(err, "emergency reserve is also exhausted")
}

func TestRemoveExpiredPurgesOnlyExpiredItems(t *testing.T) {
	require := require.New(t)
	q := New(DefaultConfig())
	now := time.Now()
	require.NoError(q.Enqueue(item(wire.Normal, false, now.Add(-time.Hour), time.Minute)))
	require.NoError(q.Enqueue(item(wire.Normal, false, now, time.Minute)))

	removed := q.RemoveExpired(now)
	require.Equal(1, removed)
	require.Equal(1, q.Len())
}

func TestHealthScoreDropsAsQueueFillsPastSoftThreshold(t *testing.T) {
	require := require.New(t)
	cfg := Config{
		PerPriorityCap: map[wire.Priority]int{wire.Normal: 100},
		TotalCap:       100,
		SoftThreshold:  50,
	}
	q := New(cfg)
	now := time.Now()
	require.Equal(1.0, q.HealthScore())

	for i := 0; i < 75; i++ {
		require.NoError(q.Enqueue(item(wire.Normal, false, now, 0)))
	}
	score := q.HealthScore()
	require.Less(score, 1.0)
	require.Greater(score, 0.0)
}
