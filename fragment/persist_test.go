package fragment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/store"
	"github.com/grekinsky/lorachain-sub002/wire"
)

func TestIncompleteSessionSurvivesRestoreSessions(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)
	sender := node(1)
	keys := staticKeys{nodeID: sender, pub: kp.Pub}
	kv := store.NewMemStore()
	defer kv.Close()

	f := New(DefaultConfig(), nil, nil, keys, nil)
	f.AttachStore(kv)

	payload := make([]byte, wire.PayloadCapFor(wire.TypeUTXOTx)*3+10)
	msgID := ids.MessageID{9}
	frags, err := Split(payload, wire.TypeUTXOTx, wire.Normal, kp, sender, msgID)
	require.NoError(err)

	now := time.Now()
	_, completed, err := f.Receive(frags[0], now)
	require.NoError(err)
	require.False(completed)
	_, completed, err = f.Receive(frags[2], now)
	require.NoError(err)
	require.False(completed)

	restored := New(DefaultConfig(), nil, nil, keys, nil)
	require.NoError(RestoreSessions(restored, kv))

	sess, ok := restored.Session(msgID)
	require.True(ok)
	require.Equal(uint16(4), sess.TotalFragments)
	require.Equal([]uint16{1, 3}, sess.Missing())
	require.Equal(frags[0].Payload, sess.payloadSlots[0])
}

func TestCompletedSessionIsRemovedFromStore(t *testing.T) {
	require := require.New(t)
	kp, err := crypto.GenerateKeyPair()
	require.NoError(err)
	sender := node(1)
	keys := staticKeys{nodeID: sender, pub: kp.Pub}
	kv := store.NewMemStore()
	defer kv.Close()

	f := New(DefaultConfig(), nil, nil, keys, nil)
	f.AttachStore(kv)

	frags, err := Split([]byte("short"), wire.TypeDiscovery, wire.Normal, kp, sender, ids.MessageID{11})
	require.NoError(err)

	now := time.Now()
	_, completed, err := f.Receive(frags[0], now)
	require.NoError(err)
	require.True(completed)

	_, err = kv.Get(store.SessionKey(ids.MessageID{11}.Bytes()))
	require.Error(err)
}
