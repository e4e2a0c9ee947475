package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runKVSuite(t *testing.T, kv KV) {
	require := require.New(t)

	_, err := kv.Get([]byte("missing"))
	require.ErrorIs(err, ErrNotFound)

	require.NoError(kv.Put([]byte("a"), []byte("1")))
	require.NoError(kv.Put([]byte("b"), []byte("2")))

	v, err := kv.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte("1"), v)

	require.NoError(kv.Delete([]byte("a")))
	_, err = kv.Get([]byte("a"))
	require.ErrorIs(err, ErrNotFound)
}

func TestMemStoreSatisfiesKVContract(t *testing.T) {
	kv := NewMemStore()
	defer kv.Close()
	runKVSuite(t, kv)
}

func TestPebbleStoreSatisfiesKVContract(t *testing.T) {
	kv, err := OpenPebble(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer kv.Close()
	runKVSuite(t, kv)
}

func TestMemStoreIteratorScansPrefixInOrder(t *testing.T) {
	require := require.New(t)
	kv := NewMemStore()
	defer kv.Close()

	require.NoError(kv.Put([]byte("utxo/aa/0"), []byte("x")))
	require.NoError(kv.Put([]byte("utxo/aa/1"), []byte("y")))
	require.NoError(kv.Put([]byte("utxo/bb/0"), []byte("z")))

	it := kv.NewIterator([]byte("utxo/aa/"))
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(it.Error())
	require.Equal([]string{"utxo/aa/0", "utxo/aa/1"}, keys)
}

func TestPebbleStoreIteratorScansPrefixInOrder(t *testing.T) {
	require := require.New(t)
	kv, err := OpenPebble(filepath.Join(t.TempDir(), "db"))
	require.NoError(err)
	defer kv.Close()

	require.NoError(kv.Put([]byte("utxo/aa/0"), []byte("x")))
	require.NoError(kv.Put([]byte("utxo/aa/1"), []byte("y")))
	require.NoError(kv.Put([]byte("utxo/bb/0"), []byte("z")))

	it := kv.NewIterator([]byte("utxo/aa/"))
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(it.Error())
	require.Equal([]string{"utxo/aa/0", "utxo/aa/1"}, keys)
}

func TestKeyBuildersAreDistinctAcrossSpaces(t *testing.T) {
	require := require.New(t)
	txid := []byte{1, 2, 3}
	node := []byte{9, 9}

	keys := [][]byte{
		BlockKey(5),
		UTXOKey(txid, 0),
		AddrUTXOKey("addr1", txid, 0),
		KeypairKey("addr1"),
		GenesisKey("chain1"),
		BanKey(node),
		SessionKey([]byte{4, 5}),
		DiscoveryCacheKey(node),
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		s := string(k)
		require.False(seen[s], "duplicate key %q across key spaces", s)
		seen[s] = true
	}
}

func TestUTXOPrefixForTxMatchesUTXOKey(t *testing.T) {
	require := require.New(t)
	txid := []byte{0xaa, 0xbb}
	prefix := UTXOPrefixForTx(txid)
	key := UTXOKey(txid, 3)
	require.True(len(key) > len(prefix) && string(key[:len(prefix)]) == string(prefix))
}
