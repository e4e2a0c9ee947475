// Package genesis defines the genesis configuration record (spec §3)
// and the synthesis of the genesis block from it. Grounded on
// genesis/config.go's Config/Allocation shape and load-by-name pattern,
// generalized from Avalanche's multi-chain allocation model to the
// spec's single UTXO allocation list.
package genesis

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/grekinsky/lorachain-sub002/chain"
	"github.com/grekinsky/lorachain-sub002/lorerr"
	"github.com/grekinsky/lorachain-sub002/merkle"
	"github.com/grekinsky/lorachain-sub002/store"
)

// Allocation is one genesis allocation of funds to an address.
type Allocation struct {
	Address     string `json:"address"`
	Amount      uint64 `json:"amount"`
	Description string `json:"description,omitempty"`
}

// NetworkParams mirrors spec §3's network_params block.
type NetworkParams struct {
	InitialDifficulty  uint32  `json:"initialDifficulty"`
	TargetBlockTimeS   int64   `json:"targetBlockTimeS"`
	AdjustmentPeriod   uint64  `json:"adjustmentPeriod"`
	MaxDifficultyRatio float64 `json:"maxDifficultyRatio"`
	MaxBlockSize       uint64  `json:"maxBlockSize"`
	MiningReward       uint64  `json:"miningReward"`
	HalvingInterval    uint64  `json:"halvingInterval"`
}

// Metadata mirrors spec §3's metadata block.
type Metadata struct {
	Timestamp   int64  `json:"timestamp"`
	Creator     string `json:"creator"`
	NetworkType string `json:"networkType"`
}

// Config is the full genesis configuration, saved as a named, loadable,
// persistent record keyed by ChainID (spec §3).
type Config struct {
	ChainID            string        `json:"chainId"`
	NetworkName        string        `json:"networkName"`
	Version            string        `json:"version"`
	InitialAllocations []Allocation  `json:"initialAllocations"`
	TotalSupply        uint64        `json:"totalSupply"`
	NetworkParams      NetworkParams `json:"networkParams"`
	Metadata           Metadata      `json:"metadata"`
}

var semverRe = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// Validate checks the invariants of spec §3: chain_id length, semver
// version, allocations not exceeding total supply, and unique
// addresses.
func (c Config) Validate() error {
	if len(c.ChainID) < 3 {
		return lorerr.Validationf("genesis: chain_id must be at least 3 chars")
	}
	if !semverRe.MatchString(c.Version) {
		return lorerr.Validationf("genesis: version %q is not semver", c.Version)
	}
	if c.NetworkParams.TargetBlockTimeS < 60 || c.NetworkParams.TargetBlockTimeS > 1800 {
		return lorerr.Validationf("genesis: target_block_time_s out of [60,1800]")
	}
	if c.NetworkParams.MaxBlockSize < 1024 || c.NetworkParams.MaxBlockSize > 32*1024*1024 {
		return lorerr.Validationf("genesis: max_block_size out of [1KiB,32MiB]")
	}

	seen := make(map[string]bool, len(c.InitialAllocations))
	var total uint64
	for _, a := range c.InitialAllocations {
		if seen[a.Address] {
			return lorerr.Validationf("genesis: duplicate allocation address %s", a.Address)
		}
		seen[a.Address] = true
		total += a.Amount
	}
	if total > c.TotalSupply {
		return lorerr.Validationf("genesis: allocations %d exceed total supply %d", total, c.TotalSupply)
	}
	return nil
}

// DifficultyParams adapts NetworkParams into chain.DifficultyParams.
func (c Config) DifficultyParams() chain.DifficultyParams {
	return chain.DifficultyParams{
		TargetBlockTimeS:   c.NetworkParams.TargetBlockTimeS,
		AdjustmentPeriod:   c.NetworkParams.AdjustmentPeriod,
		MaxDifficultyRatio: c.NetworkParams.MaxDifficultyRatio,
		MinDifficulty:      1,
		MaxDifficulty:      1 << 24,
	}
}

// Block synthesizes the genesis block: index=0, prev_hash all-zero,
// one coinbase-style transaction per allocation, each producing a
// single UTXO of the allocated value at height 0 (spec §3/§4.3).
func (c Config) Block() chain.Block {
	var txs []chain.Transaction
	for i, a := range c.InitialAllocations {
		tx := chain.Transaction{
			Outputs:   []chain.TxOutput{{Value: a.Amount, Script: a.Address}},
			Timestamp: c.Metadata.Timestamp,
			LockTime:  uint64(i), // disambiguates otherwise-identical coinbase txs
		}
		tx.TxID = tx.ComputeTxID()
		txs = append(txs, tx)
	}

	b := chain.Block{
		Index:        0,
		Timestamp:    c.Metadata.Timestamp,
		Transactions: txs,
		Difficulty:   c.NetworkParams.InitialDifficulty,
	}
	b.MerkleRoot = merkle.Root(b.TxIDs())
	mineGenesisNonce(&b)
	return b
}

// mineGenesisNonce searches for the smallest nonce whose resulting hash
// satisfies b.Difficulty, so the synthesized genesis block is
// admissible under the same BadPoW check chain.Apply applies to every
// other block (spec §3: "hash begins with difficulty zero nibbles" —
// the genesis block is not exempted). InitialDifficulty is expected to
// be small for a bring-up network, so a brute-force search over Nonce
// converges quickly.
func mineGenesisNonce(b *chain.Block) {
	for nonce := uint64(0); ; nonce++ {
		b.Nonce = nonce
		h := b.ComputeHash()
		if merkle.LeadingZeroNibbles(h) >= b.Difficulty {
			b.Hash = h
			return
		}
	}
}

// Store persists cfg at genesis/<chain_id>.
func Store(kv store.KV, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return kv.Put(store.GenesisKey(c.ChainID), b)
}

// Load retrieves the named genesis config.
func Load(kv store.KV, chainID string) (Config, error) {
	b, err := kv.Get(store.GenesisKey(chainID))
	if err != nil {
		if err == store.ErrNotFound {
			return Config{}, lorerr.NotFoundf("genesis: chain_id %s not found", chainID)
		}
		return Config{}, err
	}
	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("genesis: decode: %w", err)
	}
	return c, nil
}
