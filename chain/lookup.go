package chain

import (
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/utxo"
)

// TxByID scans applied blocks for a transaction by id. Blocks are
// append-only and small in count relative to a LoRa-constrained
// deployment's lifetime, so a linear scan is adequate; a height index
// is left for a future iteration if block counts grow large.
func (c *Chain) TxByID(txid ids.ID) (Transaction, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.blocks {
		for _, tx := range b.Transactions {
			if tx.TxID == txid {
				return tx, b.Index, true
			}
		}
	}
	return Transaction{}, 0, false
}

// OutputAt returns the output at (txid, vout) from the chain's applied
// history (regardless of whether it has since been spent and removed
// from the live UTXO set), for spent-UTXO detail lookups.
func (c *Chain) OutputAt(txid ids.ID, vout uint32) (TxOutput, uint64, bool) {
	tx, height, ok := c.TxByID(txid)
	if !ok || int(vout) >= len(tx.Outputs) {
		return TxOutput{}, 0, false
	}
	return tx.Outputs[vout], height, true
}

// SpentOutputsForScript scans applied-block history for outputs paying
// script that are no longer present in the live UTXO set, i.e. have
// been spent by a later transaction. Supports the REST address-UTXO
// listing's includeSpent flag (spec §6), which the live utxo.Set alone
// cannot answer since spent outputs are pruned from it on application.
func (c *Chain) SpentOutputsForScript(script string) []utxo.UTXO {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []utxo.UTXO
	for _, b := range c.blocks {
		for _, tx := range b.Transactions {
			for vout, o := range tx.Outputs {
				if o.Script != script {
					continue
				}
				if _, err := c.utxos.Get(tx.TxID, uint32(vout)); err == nil {
					continue // still unspent
				}
				out = append(out, utxo.UTXO{
					TxID:        tx.TxID,
					Vout:        uint32(vout),
					Value:       o.Value,
					Script:      o.Script,
					BlockHeight: b.Index,
					Spent:       true,
				})
			}
		}
	}
	return out
}
