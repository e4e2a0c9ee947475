package mesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grekinsky/lorachain-sub002/delivery"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/peer"
	"github.com/grekinsky/lorachain-sub002/store"
	"github.com/grekinsky/lorachain-sub002/wire"
)

func node(b byte) ids.NodeID {
	var n ids.NodeID
	n[0] = b
	return n
}

func TestPeerSyncHappyPath(t *testing.T) {
	require := require.New(t)
	now := time.Now()
	ps := NewPeerSync(node(1), now)
	require.Equal(Discovering, ps.CurrentState())

	for _, next := range []SyncState{Negotiating, HeaderSync, UTXOSetSync, BlockSync, MempoolSync, Synchronized} {
		require.NoError(ps.Advance(next, now))
		require.Equal(next, ps.CurrentState())
	}
}

func TestPeerSyncRejectsSkippedState(t *testing.T) {
	require := require.New(t)
	ps := NewPeerSync(node(1), time.Now())
	err := ps.Advance(BlockSync, time.Now())
	require.Error(err)
}

func TestPeerSyncReorgReachableFromAnyState(t *testing.T) {
	require := require.New(t)
	now := time.Now()
	ps := NewPeerSync(node(1), now)
	require.NoError(ps.Advance(Negotiating, now))
	require.NoError(ps.Advance(HeaderSync, now))
	require.NoError(ps.Advance(ReorgHandling, now))
	require.Equal(ReorgHandling, ps.CurrentState())

	require.NoError(ps.ResumeFromReorg(now))
	require.Equal(HeaderSync, ps.CurrentState())
}

func TestResumeFromReorgOutsideReorgFails(t *testing.T) {
	require := require.New(t)
	ps := NewPeerSync(node(1), time.Now())
	require.Error(ps.ResumeFromReorg(time.Now()))
}

func idhash(b byte) ids.ID {
	var h ids.ID
	h[0] = b
	return h
}

func TestBatchHeadersSplitsAtBatchSize(t *testing.T) {
	require := require.New(t)
	hashes := make([]ids.ID, 250)
	for i := range hashes {
		hashes[i] = idhash(byte(i))
	}
	batches := BatchHeaders(hashes, 0, 100)
	require.Len(batches, 3)
	require.Len(batches[0].Headers, 100)
	require.Len(batches[2].Headers, 50)
	require.Equal(uint64(200), batches[2].FromHeight)
}

func TestVerifySnapshotRejectsRootMismatch(t *testing.T) {
	require := require.New(t)
	n := SnapshotNegotiation{Height: 10, MerkleRoot: idhash(1)}
	require.Error(VerifySnapshot(n, idhash(2)))
	require.NoError(VerifySnapshot(n, idhash(1)))
}

func TestSelectStrategyPrefersInternetUnlessMeshOnlyPeers(t *testing.T) {
	require := require.New(t)
	internetUp := TransportProbe{Available: true}
	meshUp := TransportProbe{Available: true}
	meshDown := TransportProbe{Available: false}

	require.Equal(StrategyInternet, SelectStrategy(internetUp, meshDown, false))
	require.Equal(StrategyHybrid, SelectStrategy(internetUp, meshUp, true))
	require.Equal(StrategyMesh, SelectStrategy(TransportProbe{}, meshUp, false))
}

func TestBusPublishIsNonBlockingWhenFull(t *testing.T) {
	require := require.New(t)
	bus := NewBus(1)
	bus.PublishPeerBanned(PeerBannedEvent{Peer: node(1)})
	// channel is now full (buffer 1); a second publish must not block.
	done := make(chan struct{})
	go func() {
		bus.PublishPeerBanned(PeerBannedEvent{Peer: node(2)})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishPeerBanned blocked on a full channel")
	}

	e := <-bus.PeerBanned
	require.Equal(node(1), e.Peer)
}

type fakeBanSnapshot struct{ m map[ids.NodeID]bool }

func (f fakeBanSnapshot) Snapshot() map[ids.NodeID]bool { return f.m }

type fakeDiscoverySnapshot struct{ peers []*peer.Peer }

func (f fakeDiscoverySnapshot) Snapshot() []*peer.Peer { return f.peers }

func TestShutdownDrainsPoolAndPersistsBanList(t *testing.T) {
	require := require.New(t)
	kv := store.NewMemStore()
	defer kv.Close()

	tracker := delivery.NewTracker(nil, nil, nil)
	now := time.Now()
	id := ids.GenerateMessageID()
	tracker.Begin(id, node(9), wire.TypeUTXOTx, now)

	pool := peer.NewPool(peer.DefaultPoolConfig())
	pool.TryAddOutbound(&peer.Peer{ID: node(1)})

	banSnap := fakeBanSnapshot{m: map[ids.NodeID]bool{node(1): true}}
	discSnap := fakeDiscoverySnapshot{peers: []*peer.Peer{{ID: node(2), Address: "10.0.0.2"}}}

	err := Shutdown(context.Background(), tracker, pool, banSnap, discSnap, kv, nil, now.Add(time.Hour))
	require.NoError(err)

	require.Empty(pool.All())

	v, err := kv.Get(store.BanKey(node(1).Bytes()))
	require.NoError(err)
	require.Equal([]byte{1}, v)

	v, err = kv.Get(store.DiscoveryCacheKey(node(2).Bytes()))
	require.NoError(err)
	require.Equal([]byte("10.0.0.2"), v)
}
