package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/store"
)

// NodeID derives a mesh participant's identity from the first 20 bytes of
// the SHA-256 of its public key (see ids.NodeID's doc comment).
func NodeID(pub *btcec.PublicKey) ids.NodeID {
	sum := sha256.Sum256(pub.SerializeCompressed())
	var out ids.NodeID
	copy(out[:], sum[:20])
	return out
}

// persistedKeyPair is the wire shape of spec §6's keypair/<address>
// record.
type persistedKeyPair struct {
	Algorithm  string `json:"algorithm"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// StoreKeyPair durably persists kp under the keypair/<address> layout.
func StoreKeyPair(kv store.KV, kp *KeyPair) error {
	rec := persistedKeyPair{
		Algorithm:  "secp256k1-schnorr",
		PublicKey:  hex.EncodeToString(kp.Pub.SerializeCompressed()),
		PrivateKey: hex.EncodeToString(kp.Priv.Serialize()),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("crypto: encoding keypair: %w", err)
	}
	return kv.Put(store.KeypairKey(kp.Address()), raw)
}

// LoadKeyPair reverses StoreKeyPair for a known address.
func LoadKeyPair(kv store.KV, address string) (*KeyPair, error) {
	raw, err := kv.Get(store.KeypairKey(address))
	if err != nil {
		return nil, err
	}
	var rec persistedKeyPair
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("crypto: decoding persisted keypair %q: %w", address, err)
	}
	privBytes, err := hex.DecodeString(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding private key for %q: %w", address, err)
	}
	priv, pub := btcec.PrivKeyFromBytes(privBytes)
	return &KeyPair{Priv: priv, Pub: pub}, nil
}

// LoadOrCreateIdentity loads the node's persisted signing identity, or
// generates and persists a new one on first boot. A fresh keypair every
// restart would desync every peer's Keystore entry for this node (spec
// §9's signature-verification design assumes a stable node↔key
// binding), so the identity's address is remembered at a reserved
// pointer key alongside its keypair/<address> record.
func LoadOrCreateIdentity(kv store.KV) (*KeyPair, error) {
	addrRaw, err := kv.Get(store.IdentityPointerKey())
	if err != nil {
		kp, err := GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("crypto: generating identity: %w", err)
		}
		if err := StoreKeyPair(kv, kp); err != nil {
			return nil, err
		}
		if err := kv.Put(store.IdentityPointerKey(), []byte(kp.Address())); err != nil {
			return nil, fmt.Errorf("crypto: persisting identity pointer: %w", err)
		}
		return kp, nil
	}
	return LoadKeyPair(kv, string(addrRaw))
}
