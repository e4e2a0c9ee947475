package peer

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// Keystore maps a known node id to its identity public key, the shared
// lookup every signature-checking collaborator (route table, flood
// admission, fragment/ACK verification) consults instead of trusting an
// unauthenticated claim (spec §9 resolved Open Question: every
// signature path verifies against the claimed signer's known key).
type Keystore struct {
	mu   sync.RWMutex
	keys map[ids.NodeID]*btcec.PublicKey
}

func NewKeystore() *Keystore {
	return &Keystore{keys: make(map[ids.NodeID]*btcec.PublicKey)}
}

func (k *Keystore) Register(node ids.NodeID, pub *btcec.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[node] = pub
}

func (k *Keystore) Lookup(node ids.NodeID) (*btcec.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.keys[node]
	return pub, ok
}
