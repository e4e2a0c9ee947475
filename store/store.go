// Package store defines the abstract key/value interface the ledger and
// mesh subsystems persist through (spec §6 key spaces). Concrete
// database engines are external collaborators; this package defines the
// interface plus two reference adapters: an in-memory ordered map for
// tests and a pebble-backed adapter for a real deployment.
package store

import "errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("store: key not found")

// KV is the abstract, range-scannable key/value store every persistent
// key space in spec §6 is built on:
//
//	block/<big-endian u64 index>           -> block
//	utxo/<txid>/<u32 vout>                 -> utxo
//	addrutxo/<script>/<txid>/<vout>        -> empty (secondary index)
//	keypair/<address>                      -> keypair record
//	genesis/<chain_id>                     -> genesis config
//	ban/<node_id>                          -> ban entry
//	session/<message_id>                   -> reassembly session
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// NewIterator returns entries whose key starts with prefix, in
	// ascending key order.
	NewIterator(prefix []byte) Iterator
	Close() error
}

// Iterator walks a range of keys in ascending order. Callers must call
// Release when done.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}
