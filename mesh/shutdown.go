package mesh

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grekinsky/lorachain-sub002/delivery"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/logging"
	"github.com/grekinsky/lorachain-sub002/peer"
	"github.com/grekinsky/lorachain-sub002/store"
)

// BanListSnapshot is the minimal shape the peer ban list must expose to
// be persisted across restarts (spec §5: "graceful shutdown ... persists
// the ban list and discovery cache").
type BanListSnapshot interface {
	Snapshot() map[ids.NodeID]bool
}

// DiscoveryCacheSnapshot is the minimal shape the discovery registry
// must expose to be persisted across restarts.
type DiscoveryCacheSnapshot interface {
	Snapshot() []*peer.Peer
}

// Shutdown fails every delivery already due for retry at now through
// tracker.Fail, which dead-letters those out of attempts or past their
// policy's max latency; deliveries not yet due, or with attempts and
// time left, stay pending. It then closes every pooled connection and
// persists the ban list and the discovery cache, in that order (spec
// §5). Periodic cooperative tasks are stopped by cancelling ctx before
// calling Shutdown; ctx is not otherwise used.
func Shutdown(ctx context.Context, tracker *delivery.Tracker, pool *peer.Pool, banList BanListSnapshot, discovery DiscoveryCacheSnapshot, kv store.KV, log logging.Logger, now time.Time) error {
	_ = ctx
	if log == nil {
		log = logging.NoLog
	}

	for _, d := range tracker.DueForRetry(now) {
		tracker.Fail(d.MessageID, now)
	}

	for _, id := range pool.All() {
		pool.Remove(id)
		log.Debug("closed connection during shutdown", zap.String("peer", id.String()))
	}

	if banList != nil {
		if err := persistBanList(kv, banList.Snapshot()); err != nil {
			return err
		}
	}
	if discovery != nil {
		if err := persistDiscoveryCache(kv, discovery.Snapshot()); err != nil {
			return err
		}
	}

	log.Info("mesh protocol shutdown complete")
	return nil
}

func persistBanList(kv store.KV, banned map[ids.NodeID]bool) error {
	for node, permanent := range banned {
		val := []byte{0}
		if permanent {
			val[0] = 1
		}
		if err := kv.Put(store.BanKey(node.Bytes()), val); err != nil {
			return err
		}
	}
	return nil
}

func persistDiscoveryCache(kv store.KV, peers []*peer.Peer) error {
	for _, p := range peers {
		key := store.DiscoveryCacheKey(p.ID.Bytes())
		if err := kv.Put(key, []byte(p.Address)); err != nil {
			return err
		}
	}
	return nil
}
