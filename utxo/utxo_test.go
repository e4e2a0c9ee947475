package utxo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

func txid(b byte) ids.ID {
	var id ids.ID
	id[0] = b
	return id
}

func TestSetAddSpendGet(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	u := UTXO{TxID: txid(1), Vout: 0, Value: 1000, Script: "alice"}
	s.Add(u)

	got, err := s.Get(u.TxID, u.Vout)
	require.NoError(err)
	require.Equal(u, got)

	spent, err := s.Spend(u.TxID, u.Vout)
	require.NoError(err)
	require.True(spent.Spent)

	_, err = s.Get(u.TxID, u.Vout)
	require.Error(err)
}

func TestSpendUnknownIsNotFound(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	_, err := s.Spend(txid(9), 0)
	require.Error(err)
	var lerr *lorerr.Error
	require.ErrorAs(err, &lerr)
	require.Equal(lorerr.NotFound, lerr.Kind)
}

func TestSpendTwiceFails(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	u := UTXO{TxID: txid(2), Vout: 0, Value: 500, Script: "bob"}
	s.Add(u)
	_, err := s.Spend(u.TxID, u.Vout)
	require.NoError(err)
	_, err = s.Spend(u.TxID, u.Vout)
	require.Error(err)
}

func TestUTXOsOfSortedDescending(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	s.Add(UTXO{TxID: txid(1), Vout: 0, Value: 100, Script: "alice"})
	s.Add(UTXO{TxID: txid(2), Vout: 0, Value: 500, Script: "alice"})
	s.Add(UTXO{TxID: txid(3), Vout: 0, Value: 250, Script: "alice"})

	out := s.UTXOsOf("alice")
	require.Len(out, 3)
	require.Equal(uint64(500), out[0].Value)
	require.Equal(uint64(250), out[1].Value)
	require.Equal(uint64(100), out[2].Value)
}

func TestBalanceSumsOwnedOutputs(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	s.Add(UTXO{TxID: txid(1), Vout: 0, Value: 100, Script: "alice"})
	s.Add(UTXO{TxID: txid(2), Vout: 0, Value: 500, Script: "alice"})
	s.Add(UTXO{TxID: txid(3), Vout: 0, Value: 250, Script: "bob"})

	require.Equal(uint64(600), s.Balance("alice"))
	require.Equal(uint64(250), s.Balance("bob"))
}

func flatFee(numInputs, numOutputs int) uint64 { return 100 }

func TestSelectLargestFirstWithChange(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	s.Add(UTXO{TxID: txid(1), Vout: 0, Value: 1000, Script: "alice"})
	s.Add(UTXO{TxID: txid(2), Vout: 0, Value: 5000, Script: "alice"})

	sel, err := s.Select("alice", 4000, flatFee)
	require.NoError(err)
	require.Len(sel.UTXOs, 1)
	require.Equal(uint64(5000), sel.Total)
	require.Equal(uint64(900), sel.Change) // 5000 - 4000 - 100 fee
}

func TestSelectDustChangeAbsorbedIntoFee(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	s.Add(UTXO{TxID: txid(1), Vout: 0, Value: 4050, Script: "alice"})

	sel, err := s.Select("alice", 4000, flatFee)
	require.Error(err)
	// 4050 - 4000 - 100(fee) is negative under the worst-case fee shape
	// used here; use an amount that leaves a sub-dust remainder.
	_ = sel
	sel2, err := s.Select("alice", 3903, flatFee)
	require.NoError(err)
	require.Equal(uint64(0), sel2.Change)
}

func TestSelectInsufficientFunds(t *testing.T) {
	require := require.New(t)
	s := NewSet()
	s.Add(UTXO{TxID: txid(1), Vout: 0, Value: 100, Script: "alice"})

	_, err := s.Select("alice", 1000, flatFee)
	require.Error(err)
	var lerr *lorerr.Error
	require.ErrorAs(err, &lerr)
	require.Equal(lorerr.InsufficientFunds, lerr.Kind)
}
