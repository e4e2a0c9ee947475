// Package chain implements the L4 block chain: ordered blocks, the
// difficulty schedule, and genesis application, built on the L2 UTXO
// set and L3 Merkle root.
package chain

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/ids"
)

// TxInput references a previous output being spent.
type TxInput struct {
	PrevTxID     ids.ID
	PrevVout     uint32
	UnlockScript []byte // SerializeUnlock(pubkey, sig)
	Sequence     uint32
}

// TxOutput is a newly created, spendable value.
type TxOutput struct {
	Value  uint64
	Script string // destination address
}

// Transaction is a UTXO-consuming, UTXO-producing state transition.
type Transaction struct {
	TxID      ids.ID
	Inputs    []TxInput
	Outputs   []TxOutput
	LockTime  uint64
	Timestamp int64
	Fee       uint64
}

// SerializeUnlock packs a compressed public key and a 64-byte Schnorr
// signature into the bytes stored in TxInput.UnlockScript.
func SerializeUnlock(pub *btcec.PublicKey, sig [64]byte) []byte {
	buf := make([]byte, 0, 33+64)
	buf = append(buf, pub.SerializeCompressed()...)
	buf = append(buf, sig[:]...)
	return buf
}

// ParseUnlock reverses SerializeUnlock.
func ParseUnlock(b []byte) (*btcec.PublicKey, [64]byte, error) {
	var sig [64]byte
	if len(b) != 33+64 {
		return nil, sig, errBadUnlock
	}
	pub, err := btcec.ParsePubKey(b[:33])
	if err != nil {
		return nil, sig, err
	}
	copy(sig[:], b[33:])
	return pub, sig, nil
}

// canonicalBytes serializes the fields that participate in the txid and
// in the signed digest: everything except the unlocking scripts
// (signatures can't sign over themselves) and the cached TxID/Fee.
func (tx Transaction) canonicalBytes() []byte {
	var buf bytes.Buffer
	for _, in := range tx.Inputs {
		buf.Write(in.PrevTxID[:])
		var v [4]byte
		binary.BigEndian.PutUint32(v[:], in.PrevVout)
		buf.Write(v[:])
		binary.BigEndian.PutUint32(v[:], in.Sequence)
		buf.Write(v[:])
	}
	for _, out := range tx.Outputs {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], out.Value)
		buf.Write(v[:])
		buf.WriteString(out.Script)
	}
	var v8 [8]byte
	binary.BigEndian.PutUint64(v8[:], tx.LockTime)
	buf.Write(v8[:])
	binary.BigEndian.PutUint64(v8[:], uint64(tx.Timestamp))
	buf.Write(v8[:])
	return buf.Bytes()
}

// ComputeTxID derives txid = H(canonical(tx)) per spec §3.
func (tx Transaction) ComputeTxID() ids.ID {
	return crypto.Hash256(tx.canonicalBytes())
}

// SigningDigest is what each input's unlock signature must cover: the
// canonical transaction body (spec §3: "each unlock_script must verify
// under the locking_script of the referenced UTXO").
func (tx Transaction) SigningDigest() []byte {
	return tx.canonicalBytes()
}

// Block is one link in the append-only chain.
type Block struct {
	Index        uint64
	Timestamp    int64
	PrevHash     ids.ID
	MerkleRoot   ids.ID
	Transactions []Transaction
	Nonce        uint64
	Difficulty   uint32
	Hash         ids.ID
}

func (b Block) TxIDs() []ids.ID {
	out := make([]ids.ID, len(b.Transactions))
	for i, tx := range b.Transactions {
		out[i] = tx.TxID
	}
	return out
}

// headerBytes is what gets hashed to produce Block.Hash.
func (b Block) headerBytes() []byte {
	var buf bytes.Buffer
	var v8 [8]byte
	binary.BigEndian.PutUint64(v8[:], b.Index)
	buf.Write(v8[:])
	binary.BigEndian.PutUint64(v8[:], uint64(b.Timestamp))
	buf.Write(v8[:])
	buf.Write(b.PrevHash[:])
	buf.Write(b.MerkleRoot[:])
	binary.BigEndian.PutUint64(v8[:], b.Nonce)
	buf.Write(v8[:])
	var v4 [4]byte
	binary.BigEndian.PutUint32(v4[:], b.Difficulty)
	buf.Write(v4[:])
	return buf.Bytes()
}

// ComputeHash derives the block hash from its header fields.
func (b Block) ComputeHash() ids.ID {
	return crypto.Hash256(b.headerBytes())
}
