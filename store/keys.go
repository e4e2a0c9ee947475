package store

import (
	"encoding/binary"
	"fmt"
)

// Key-building helpers for the persistent key spaces of spec §6. Kept
// centralized so every subsystem agrees on layout.

func BlockKey(index uint64) []byte {
	b := make([]byte, len("block/")+8)
	n := copy(b, "block/")
	binary.BigEndian.PutUint64(b[n:], index)
	return b
}

func UTXOKey(txid []byte, vout uint32) []byte {
	return []byte(fmt.Sprintf("utxo/%x/%d", txid, vout))
}

func UTXOPrefixForTx(txid []byte) []byte {
	return []byte(fmt.Sprintf("utxo/%x/", txid))
}

func AddrUTXOKey(script string, txid []byte, vout uint32) []byte {
	return []byte(fmt.Sprintf("addrutxo/%s/%x/%d", script, txid, vout))
}

func AddrUTXOPrefix(script string) []byte {
	return []byte(fmt.Sprintf("addrutxo/%s/", script))
}

func KeypairKey(address string) []byte {
	return []byte("keypair/" + address)
}

func GenesisKey(chainID string) []byte {
	return []byte("genesis/" + chainID)
}

func BanKey(nodeID []byte) []byte {
	return []byte(fmt.Sprintf("ban/%x", nodeID))
}

func SessionKey(messageID []byte) []byte {
	return []byte(fmt.Sprintf("session/%x", messageID))
}

// DiscoveryCacheKey is a supplementary key space (spec §5: "graceful
// shutdown ... persists the ban list and discovery cache", not
// otherwise assigned a layout in spec §6) holding a known peer's last
// advertised address, keyed by node id.
func DiscoveryCacheKey(nodeID []byte) []byte {
	return []byte(fmt.Sprintf("discovery/%x", nodeID))
}

// IdentityPointerKey is a supplementary key space, also not assigned a
// layout in spec §6, recording which keypair/<address> record is this
// node's own signing identity, so it can be found again on restart
// without scanning every keypair/ entry.
func IdentityPointerKey() []byte {
	return []byte("identity/self")
}
