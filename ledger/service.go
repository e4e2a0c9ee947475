// Package ledger implements the L12 ledger service: the in-process
// query and mutation surface the external REST layer calls (spec §4.11,
// filling the §6 REST contract). It classifies every failure by
// lorerr.Kind at the point of detection rather than matching English
// substrings (spec §9 resolved Open Question).
package ledger

import (
	"sort"
	"sync"

	"github.com/grekinsky/lorachain-sub002/chain"
	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/logging"
	"github.com/grekinsky/lorachain-sub002/lorerr"
	"github.com/grekinsky/lorachain-sub002/utxo"
)

const maxPageLimit = 1000

// FeeRatePolicy maps a fee rate (base units per byte) and an estimated
// transaction size to an absolute fee. Left pluggable so the ledger
// doesn't hard-code a sizing formula; chain/genesis-level configuration
// supplies the concrete policy.
type FeeRatePolicy func(feeRate float64, numInputs, numOutputs int) uint64

// DefaultFeeRatePolicy estimates size as a fixed per-input/per-output
// cost (typical for a simple script shape) and multiplies by feeRate.
func DefaultFeeRatePolicy(feeRate float64, numInputs, numOutputs int) uint64 {
	const bytesPerInput = 148
	const bytesPerOutput = 34
	const overhead = 10
	size := overhead + numInputs*bytesPerInput + numOutputs*bytesPerOutput
	return uint64(feeRate * float64(size))
}

// MisbehaviorReporter receives protocol-violation attributions for a
// relayed transaction that fails verification, so the peer manager can
// count it toward its sliding-window ban threshold (spec §4.9, §7:
// "repeat offenders are banned").
type MisbehaviorReporter interface {
	ReportProtocolViolation(sender ids.NodeID)
}

// Service is the ledger query/mutation surface (spec §4.11).
type Service struct {
	mu       sync.Mutex
	chain    *chain.Chain
	feePolicy FeeRatePolicy
	log      logging.Logger
	misbehav MisbehaviorReporter

	mempool   map[ids.ID]chain.Transaction
	mempoolSeq []ids.ID
}

func NewService(c *chain.Chain, feePolicy FeeRatePolicy, log logging.Logger) *Service {
	if log == nil {
		log = logging.NoLog
	}
	if feePolicy == nil {
		feePolicy = DefaultFeeRatePolicy
	}
	return &Service{
		chain:     c,
		feePolicy: feePolicy,
		log:       log,
		mempool:   make(map[ids.ID]chain.Transaction),
	}
}

// AddressUTXOs lists script's unspent outputs sorted by value desc,
// with minValue filtering and limit/offset pagination; limit is
// clamped to 1000 (spec §6/§8 boundary behavior).
func (s *Service) AddressUTXOs(script string, minValue uint64, includeSpent bool, limit, offset int) ([]utxo.UTXO, error) {
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	all := s.chain.UTXOSet().UTXOsOf(script)
	filtered := all[:0:0]
	for _, u := range all {
		if u.Value < minValue {
			continue
		}
		filtered = append(filtered, u)
	}
	if includeSpent {
		for _, u := range s.chain.SpentOutputsForScript(script) {
			if u.Value < minValue {
				continue
			}
			filtered = append(filtered, u)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Value > filtered[j].Value })

	if offset >= len(filtered) {
		return []utxo.UTXO{}, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], nil
}

// UTXODetail is one UTXO plus its spentness and containing block
// height (spec §6 GET /utxo/{txid}:{vout}).
type UTXODetail struct {
	UTXO        utxo.UTXO
	Spent       bool
	BlockHeight uint64
}

// UTXODetail returns detail for a specific output, consulting the live
// UTXO set first and falling back to the applied-block history for
// already-spent outputs (spec §6).
func (s *Service) UTXODetail(txid ids.ID, vout uint32) (UTXODetail, error) {
	if u, err := s.chain.UTXOSet().Get(txid, vout); err == nil {
		return UTXODetail{UTXO: u, Spent: false, BlockHeight: u.BlockHeight}, nil
	}
	out, height, ok := s.chain.OutputAt(txid, vout)
	if !ok {
		return UTXODetail{}, lorerr.NotFoundf("ledger: utxo %s:%d not found", txid, vout)
	}
	return UTXODetail{
		UTXO: utxo.UTXO{TxID: txid, Vout: vout, Value: out.Value, Script: out.Script, BlockHeight: height, Spent: true},
		Spent:       true,
		BlockHeight: height,
	}, nil
}

// BuildResult is the response shape for POST /utxo-transactions/build
// (spec §6/§8: largest-first selection, inputs sorted by value desc, an
// explicit change output, fee > 0).
type BuildResult struct {
	Inputs  []utxo.UTXO
	Outputs []chain.TxOutput
	Fee     uint64
}

// BuildTransaction selects inputs via utxo.Set.Select and assembles the
// payment plus change outputs (spec §4.11). InsufficientFunds carries
// {required, available} via lorerr's structured context.
func (s *Service) BuildTransaction(from, to string, amount uint64, feeRate float64) (BuildResult, error) {
	sel, err := s.chain.UTXOSet().Select(from, amount, func(numInputs, numOutputs int) uint64 {
		return s.feePolicy(feeRate, numInputs, numOutputs)
	})
	if err != nil {
		return BuildResult{}, err
	}

	inputs := make([]utxo.UTXO, len(sel.UTXOs))
	copy(inputs, sel.UTXOs)
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Value > inputs[j].Value })

	fee := sel.Total - amount - sel.Change
	outputs := []chain.TxOutput{{Value: amount, Script: to}}
	if sel.Change > 0 {
		outputs = append(outputs, chain.TxOutput{Value: sel.Change, Script: from})
	}
	return BuildResult{Inputs: inputs, Outputs: outputs, Fee: fee}, nil
}

// SubmitTransaction validates tx against the live UTXO set and admits
// it to the mempool. Every rejection is a classified lorerr.Kind: bad
// signature is ProtocolViolation, a missing/already-spent input is
// DoubleSpend, a mismatched txid is Validation (spec §9 resolved Open
// Question: no substring matching).
func (s *Service) SubmitTransaction(tx chain.Transaction) error {
	if tx.ComputeTxID() != tx.TxID {
		return lorerr.Validationf("ledger: txid does not match computed digest")
	}

	var inputTotal uint64
	for _, in := range tx.Inputs {
		u, err := s.chain.UTXOSet().Get(in.PrevTxID, in.PrevVout)
		if err != nil {
			return lorerr.DoubleSpendErr("ledger: input %s:%d already spent or unknown", in.PrevTxID, in.PrevVout)
		}
		pub, sig, perr := chain.ParseUnlock(in.UnlockScript)
		if perr != nil || !crypto.Verify(pub, tx.SigningDigest(), sig) {
			return lorerr.ProtocolViolationf("ledger: unlock script does not verify for input %s:%d", in.PrevTxID, in.PrevVout)
		}
		inputTotal += u.Value
	}

	var outputTotal uint64
	for _, out := range tx.Outputs {
		outputTotal += out.Value
	}
	if inputTotal < outputTotal {
		return lorerr.Validationf("ledger: outputs exceed inputs")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.mempool[tx.TxID]; !exists {
		s.mempool[tx.TxID] = tx
		s.mempoolSeq = append(s.mempoolSeq, tx.TxID)
	}
	return nil
}

// AttachMisbehaviorSink wires a misbehavior sink to receive
// protocol-violation attributions for relayed transactions, the same
// optional-dependency shape fragment.Fragmenter's AttachStore uses.
func (s *Service) AttachMisbehaviorSink(r MisbehaviorReporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misbehav = r
}

// ReceiveTransaction submits tx on behalf of sender, the mesh peer that
// relayed it, attributing a ProtocolViolation-classified rejection
// (bad signature) back to sender before returning the error unchanged
// (spec §4.4/§4.9: "increments invalid_messages for the sender").
// Non-protocol rejections (double spend, insufficient inputs) are not
// attributed: they reflect stale ledger state at the sender, not
// misbehavior.
func (s *Service) ReceiveTransaction(sender ids.NodeID, tx chain.Transaction) error {
	err := s.SubmitTransaction(tx)
	if err == nil {
		return nil
	}
	s.mu.Lock()
	sink := s.misbehav
	s.mu.Unlock()
	if sink != nil {
		if kind, ok := lorerr.KindOf(err); ok && kind == lorerr.ProtocolViolation {
			sink.ReportProtocolViolation(sender)
		}
	}
	return err
}

// PendingTransactions lists the mempool in admission order (spec §6 GET
// /utxo-transactions/pending).
func (s *Service) PendingTransactions() []chain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chain.Transaction, 0, len(s.mempoolSeq))
	for _, id := range s.mempoolSeq {
		out = append(out, s.mempool[id])
	}
	return out
}

// RemoveFromMempool drops a transaction once it has been applied in a
// block, called by the block-application path.
func (s *Service) RemoveFromMempool(txid ids.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mempool[txid]; !ok {
		return
	}
	delete(s.mempool, txid)
	for i, id := range s.mempoolSeq {
		if id == txid {
			s.mempoolSeq = append(s.mempoolSeq[:i], s.mempoolSeq[i+1:]...)
			break
		}
	}
}

// FeeEstimate is the spec §6 slow/medium/fast fee-rate tiers.
type FeeEstimate struct {
	Slow   uint64
	Medium uint64
	Fast   uint64
}

// FeeEstimate computes the three tiers for a transaction of the given
// shape at fixed rate multipliers (spec §4.11).
func (s *Service) FeeEstimate(inputs, outputs int) FeeEstimate {
	return FeeEstimate{
		Slow:   s.feePolicy(1.0, inputs, outputs),
		Medium: s.feePolicy(2.0, inputs, outputs),
		Fast:   s.feePolicy(5.0, inputs, outputs),
	}
}

// Transaction returns a transaction by id, checking the mempool first
// and then applied-block history (spec §6 GET /utxo-transactions/{txid}).
func (s *Service) Transaction(txid ids.ID) (chain.Transaction, error) {
	s.mu.Lock()
	if tx, ok := s.mempool[txid]; ok {
		s.mu.Unlock()
		return tx, nil
	}
	s.mu.Unlock()

	if tx, _, ok := s.chain.TxByID(txid); ok {
		return tx, nil
	}
	return chain.Transaction{}, lorerr.NotFoundf("ledger: transaction %s not found", txid)
}
