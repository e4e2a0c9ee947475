package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/store"
)

func TestAttachStoreAndLoadFromStoreRoundTrip(t *testing.T) {
	require := require.New(t)
	kv := store.NewMemStore()
	defer kv.Close()

	now := time.Now()
	c := New(nil, testParams())
	c.AttachStore(kv)

	genesis := genesisBlock(now, []TxOutput{{Value: 1000, Script: "A"}})
	require.NoError(c.Apply(genesis, now))
	child := sealBlock(Block{Index: 1, Timestamp: now.Add(time.Minute).Unix(), PrevHash: genesis.Hash})
	require.NoError(c.Apply(child, now.Add(time.Hour)))

	reloaded, err := LoadFromStore(kv, nil, testParams(), now.Add(2*time.Hour))
	require.NoError(err)
	require.Equal(uint64(1), reloaded.Height())
	require.Equal(uint64(1000), reloaded.UTXOSet().Balance("A"))

	tip, ok := reloaded.Tip()
	require.True(ok)
	require.Equal(child.Hash, tip.Hash)
}

func TestPersistCommitRemovesSpentAndAddsNewUTXOKeys(t *testing.T) {
	require := require.New(t)
	kv := store.NewMemStore()
	defer kv.Close()

	now := time.Now()
	c := New(nil, testParams())
	c.AttachStore(kv)

	sender, err := crypto.GenerateKeyPair()
	require.NoError(err)
	receiver, err := crypto.GenerateKeyPair()
	require.NoError(err)

	genesis := genesisBlock(now, []TxOutput{{Value: 10_000, Script: sender.Address()}})
	require.NoError(c.Apply(genesis, now))
	coinbaseID := genesis.Transactions[0].TxID

	_, err = kv.Get(store.UTXOKey(coinbaseID.Bytes(), 0))
	require.NoError(err) // durable after genesis

	spend := Transaction{
		Inputs:  []TxInput{{PrevTxID: coinbaseID, PrevVout: 0}},
		Outputs: []TxOutput{{Value: 9_000, Script: receiver.Address()}},
		Fee:     1_000,
	}
	sig, err := sender.Sign(spend.SigningDigest())
	require.NoError(err)
	spend.Inputs[0].UnlockScript = SerializeUnlock(sender.Pub, sig)
	spend.TxID = spend.ComputeTxID()

	block := sealBlock(Block{Index: 1, Timestamp: now.Add(time.Minute).Unix(), PrevHash: genesis.Hash, Transactions: []Transaction{spend}})
	require.NoError(c.Apply(block, now.Add(time.Hour)))

	_, err = kv.Get(store.UTXOKey(coinbaseID.Bytes(), 0))
	require.Error(err) // the spent coinbase output's durable record is gone

	_, err = kv.Get(store.UTXOKey(spend.TxID.Bytes(), 0))
	require.NoError(err) // the new output is durable

	_, err = kv.Get(store.AddrUTXOKey(receiver.Address(), spend.TxID.Bytes(), 0))
	require.NoError(err) // and indexed by its owning script
}
