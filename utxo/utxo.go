// Package utxo implements the L2 UTXO set: an indexed map of unspent
// outputs keyed by (txid, vout) with a secondary index by owning
// script, plus largest-first coin selection.
package utxo

import (
	"sort"
	"sync"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/lorerr"
)

// DustThreshold is the minimum output value (in base units) a
// transaction may create; see spec §4.1.
const DustThreshold = 547

// Outpoint identifies a UTXO by its originating transaction and output
// index.
type Outpoint struct {
	TxID ids.ID
	Vout uint32
}

// UTXO is an unspent (or recently-spent-but-unpruned) transaction
// output.
type UTXO struct {
	TxID        ids.ID
	Vout        uint32
	Value       uint64
	Script      string
	BlockHeight uint64
	Spent       bool
}

func (u UTXO) Outpoint() Outpoint { return Outpoint{TxID: u.TxID, Vout: u.Vout} }

// Selection is the result of a coin-selection pass: the chosen UTXOs,
// their total value, and the change returned to the sender after
// amount + fee is deducted.
type Selection struct {
	UTXOs  []UTXO
	Total  uint64
	Change uint64
}

// Set is the authoritative UTXO set. It is owned by the chain/ledger
// layer and mutated only during block application; external readers use
// Balance/UTXOsOf/Select, which take a consistent snapshot under the
// read lock.
type Set struct {
	mu        sync.RWMutex
	primary   map[Outpoint]UTXO
	byScript  map[string]map[Outpoint]struct{}
}

func NewSet() *Set {
	return &Set{
		primary:  make(map[Outpoint]UTXO),
		byScript: make(map[string]map[Outpoint]struct{}),
	}
}

// Add inserts a new unspent output. Both indices are updated under the
// same lock so a concurrent reader never observes one without the
// other.
func (s *Set) Add(u UTXO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := u.Outpoint()
	s.primary[op] = u
	set, ok := s.byScript[u.Script]
	if !ok {
		set = make(map[Outpoint]struct{})
		s.byScript[u.Script] = set
	}
	set[op] = struct{}{}
}

// Spend marks the referenced output spent and removes it from both
// indices, returning the UTXO that was spent. Returns NotFound if the
// output does not exist or was already spent.
func (s *Set) Spend(txid ids.ID, vout uint32) (UTXO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := Outpoint{TxID: txid, Vout: vout}
	u, ok := s.primary[op]
	if !ok || u.Spent {
		return UTXO{}, lorerr.NotFoundf("utxo %s:%d not found", txid, vout)
	}
	delete(s.primary, op)
	if set, ok := s.byScript[u.Script]; ok {
		delete(set, op)
		if len(set) == 0 {
			delete(s.byScript, u.Script)
		}
	}
	u.Spent = true
	return u, nil
}

// Get returns the UTXO at (txid, vout) without mutating the set.
func (s *Set) Get(txid ids.ID, vout uint32) (UTXO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.primary[Outpoint{TxID: txid, Vout: vout}]
	if !ok {
		return UTXO{}, lorerr.NotFoundf("utxo %s:%d not found", txid, vout)
	}
	return u, nil
}

// UTXOsOf returns every unspent output owned by script, sorted by value
// descending (the REST listing order spec §6 requires).
func (s *Set) UTXOsOf(script string) []UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.byScript[script]
	out := make([]UTXO, 0, len(set))
	for op := range set {
		out = append(out, s.primary[op])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// Balance sums the value of every unspent output owned by script.
func (s *Set) Balance(script string) uint64 {
	var total uint64
	for _, u := range s.UTXOsOf(script) {
		total += u.Value
	}
	return total
}

// EstimatedFee is a pluggable fee estimator; chain/ledger supply the
// concrete fee-rate policy. Select uses it to decide how much the
// selection needs to cover beyond amount.
type FeeEstimator func(numInputs, numOutputs int) uint64

// Select implements largest-first greedy coin selection: sort unspent
// outputs by value descending and take them until their sum covers
// amount plus the estimated fee for the resulting transaction shape.
// Change below DustThreshold is folded into the fee instead of creating
// a dust output (spec §4.1, §8 boundary behavior).
func (s *Set) Select(script string, amount uint64, estimateFee FeeEstimator) (Selection, error) {
	candidates := s.UTXOsOf(script) // already sorted desc by value

	var chosen []UTXO
	var total uint64
	for _, u := range candidates {
		chosen = append(chosen, u)
		total += u.Value
		fee := estimateFee(len(chosen), 2) // payment + change output, worst case
		if total >= amount+fee {
			change := total - amount - fee
			if change < DustThreshold {
				// absorb the dust-sized remainder into the fee instead
				// of creating an unspendable output.
				change = 0
			}
			return Selection{UTXOs: chosen, Total: total, Change: change}, nil
		}
	}

	fee := estimateFee(len(candidates), 2)
	return Selection{}, lorerr.InsufficientFundsErr(amount+fee, total)
}
