// Package queue implements the L6 prioritized delivery queue: a
// multi-level, capacity-bounded queue with an emergency reserve and
// TTL-based eviction (spec §4.5).
package queue

import (
	"sync"
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
	"github.com/grekinsky/lorachain-sub002/wire"
)

// Item is one enqueued message. Payload is left opaque (spec §9: a
// closed tagged union over message types lives one layer up in wire;
// the queue only needs to order and expire items, not interpret them).
type Item struct {
	ID        ids.MessageID
	Priority  wire.Priority
	Emergency bool
	CreatedAt time.Time
	TTL       time.Duration
	Size      int
	Payload   []byte
}

func (it Item) expired(now time.Time) bool {
	return it.TTL > 0 && now.Sub(it.CreatedAt) >= it.TTL
}

// Config bounds the queue's capacity (spec §4.5).
type Config struct {
	// PerPriorityCap bounds each priority bucket.
	PerPriorityCap map[wire.Priority]int
	// TotalCap bounds the sum of all non-emergency messages.
	TotalCap int
	// EmergencyReserve is additional capacity on top of TotalCap
	// reserved for emergency-flagged messages.
	EmergencyReserve int
	// SoftThreshold is the health-score knee (spec §4.5).
	SoftThreshold int
}

func DefaultConfig() Config {
	return Config{
		PerPriorityCap: map[wire.Priority]int{
			wire.Critical: 256,
			wire.High:     512,
			wire.Normal:   1024,
			wire.Low:      1024,
		},
		TotalCap:         2048,
		EmergencyReserve: 128,
		SoftThreshold:    1536,
	}
}

// Queue is the capacity-bounded, multi-level priority queue.
type Queue struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[wire.Priority][]Item
	size    int // total non-emergency-reserve-consuming size
	reserveUsed int
}

func New(cfg Config) *Queue {
	return &Queue{
		cfg:     cfg,
		buckets: make(map[wire.Priority][]Item),
	}
}

// Len returns the total number of enqueued messages across all buckets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, b := range q.buckets {
		n += len(b)
	}
	return n
}

// Enqueue admits it, evicting a lower-priority victim if needed, or
// rejecting if no eviction candidate exists and capacity (including the
// emergency reserve, for emergency items) is exhausted (spec §4.5).
func (q *Queue) Enqueue(it Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := q.totalLocked()
	cap := q.cfg.PerPriorityCap[it.Priority]

	if it.Emergency {
		if total >= q.cfg.TotalCap+q.cfg.EmergencyReserve {
			return lorerr.Validationf("queue: emergency reserve exhausted")
		}
	} else if total >= q.cfg.TotalCap || len(q.buckets[it.Priority]) >= cap {
		if !q.evictVictimLocked(it.Priority) {
			return lorerr.Validationf("queue: at capacity and no eviction candidate for priority %s", it.Priority)
		}
	}

	bucket := q.buckets[it.Priority]
	if it.Emergency {
		// emergency items precede normal ones within their bucket,
		// after any other already-queued emergency items (FIFO within
		// the emergency subgroup).
		insertAt := 0
		for insertAt < len(bucket) && bucket[insertAt].Emergency {
			insertAt++
		}
		bucket = append(bucket, Item{})
		copy(bucket[insertAt+1:], bucket[insertAt:])
		bucket[insertAt] = it
	} else {
		bucket = append(bucket, it)
	}
	q.buckets[it.Priority] = bucket
	return nil
}

// totalLocked sums every bucket's length. Caller must hold q.mu.
func (q *Queue) totalLocked() int {
	n := 0
	for _, b := range q.buckets {
		n += len(b)
	}
	return n
}

// evictVictimLocked drops the lowest-priority, oldest, expired-first
// message to make room, returning whether a victim was found. Caller
// must hold q.mu.
func (q *Queue) evictVictimLocked(incoming wire.Priority) bool {
	var victimPriority wire.Priority
	victimIdx := -1
	now := time.Now()

	// Prefer an expired message anywhere strictly below incoming's
	// priority level (numerically >, since higher enum value = lower
	// priority); otherwise the oldest message in the lowest-priority
	// non-empty bucket strictly below incoming's level.
	for p := int(wire.Low); p > int(incoming); p-- {
		bucket := q.buckets[wire.Priority(p)]
		for i, it := range bucket {
			if it.expired(now) {
				victimPriority, victimIdx = wire.Priority(p), i
				break
			}
		}
		if victimIdx != -1 {
			break
		}
	}
	if victimIdx == -1 {
		for p := int(wire.Low); p > int(incoming); p-- {
			if len(q.buckets[wire.Priority(p)]) > 0 {
				victimPriority, victimIdx = wire.Priority(p), 0 // oldest is at the front (FIFO)
				break
			}
		}
	}
	if victimIdx == -1 {
		return false
	}
	bucket := q.buckets[victimPriority]
	q.buckets[victimPriority] = append(bucket[:victimIdx], bucket[victimIdx+1:]...)
	return true
}

// Dequeue yields the highest non-empty priority bucket; within a
// bucket, emergency-flagged messages precede normal ones, then FIFO
// (spec §4.5). Returns false when the queue is empty.
func (q *Queue) Dequeue() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for p := wire.Critical; p <= wire.Low; p++ {
		bucket := q.buckets[p]
		if len(bucket) == 0 {
			continue
		}
		it := bucket[0]
		q.buckets[p] = bucket[1:]
		return it, true
	}
	return Item{}, false
}

// RemoveExpired purges every message whose TTL has elapsed.
func (q *Queue) RemoveExpired(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for p, bucket := range q.buckets {
		kept := bucket[:0]
		for _, it := range bucket {
			if it.expired(now) {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		q.buckets[p] = kept
	}
	return removed
}

// HealthScore is 1 minus the fraction by which total size exceeds the
// soft threshold, relative to remaining headroom to TotalCap (spec
// §4.5).
func (q *Queue) HealthScore() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := q.totalLocked()
	headroom := q.cfg.TotalCap - q.cfg.SoftThreshold
	if headroom <= 0 {
		headroom = 1
	}
	over := float64(total-q.cfg.SoftThreshold) / float64(headroom)
	if over < 0 {
		over = 0
	}
	score := 1 - over
	if score < 0 {
		score = 0
	}
	return score
}
