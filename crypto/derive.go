package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tyler-smith/go-bip32"
)

// NodeIdentity is a long-lived mesh node identity derived from a single
// master seed via BIP32, so an operator can back up one seed phrase and
// regenerate every node key deterministically instead of managing many
// ad-hoc keys (spec §3 Peer identity is long-lived across reconnects).
type NodeIdentity struct {
	master *bip32.Key
}

// NewNodeIdentity derives a master key from seed (32+ bytes of entropy,
// e.g. from RandomNodeIdentitySeed or a BIP-39 mnemonic).
func NewNodeIdentity(seed []byte) (*NodeIdentity, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	return &NodeIdentity{master: master}, nil
}

// Derive returns the secp256k1 key pair at child index idx under this
// identity's master key (hardened derivation, so compromising a derived
// key never leaks the master).
func (n *NodeIdentity) Derive(idx uint32) (*KeyPair, error) {
	child, err := n.master.NewChildKey(bip32.FirstHardenedChild + idx)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(child.Key)
	return &KeyPair{Priv: priv, Pub: priv.PubKey()}, nil
}
