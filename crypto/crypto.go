// Package crypto provides the signing primitives shared by every signed
// wire artifact in the mesh: fragment headers, ACK/NACK, routes, and
// transaction unlock scripts. Grounded on the btcsuite-based HD wallet
// pattern in Fantasim-hdpay, adapted to the teacher's constructor idiom.
// Signatures use Schnorr (btcec/v2/schnorr) rather than DER-ECDSA
// specifically because it serializes to a fixed 64 bytes, which is what
// spec §3/§6 requires for the fragment header's signature field without
// any variable-length DER framing to strip.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/mr-tron/base58/base58"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// KeyPair is a secp256k1 identity: every node, wallet, and route signer
// in the mesh has one.
type KeyPair struct {
	Priv *btcec.PrivateKey
	Pub  *btcec.PublicKey
}

// GenerateKeyPair creates a fresh secp256k1 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Priv: priv, Pub: priv.PubKey()}, nil
}

// Sign produces a 64-byte Schnorr signature over the SHA-256 digest of
// msg.
func (kp *KeyPair) Sign(msg []byte) ([64]byte, error) {
	digest := sha256.Sum256(msg)
	sig, err := schnorr.Sign(kp.Priv, digest[:])
	var out [64]byte
	if err != nil {
		return out, err
	}
	copy(out[:], sig.Serialize())
	return out, nil
}

// Verify checks a 64-byte Schnorr signature over msg against pub.
func Verify(pub *btcec.PublicKey, msg []byte, sig [64]byte) bool {
	digest := sha256.Sum256(msg)
	parsed, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pub)
}

// Address returns the base58check-encoded public-key hash for kp, the
// spendable "script" value used throughout utxo.UTXO.Script.
func (kp *KeyPair) Address() string {
	return EncodeAddress(PubKeyHash(kp.Pub))
}

// PubKeyHash returns a 20-byte hash-derived address payload for pub: a
// double-SHA256 of the serialized compressed key, truncated to 20 bytes.
// This plays the same role as Bitcoin's HASH160 without introducing a
// RIPEMD160 dependency the retrieval pack never surfaced.
func PubKeyHash(pub *btcec.PublicKey) ids.ShortID {
	first := sha256.Sum256(pub.SerializeCompressed())
	second := sha256.Sum256(first[:])
	var out ids.ShortID
	copy(out[:], second[:20])
	return out
}

// EncodeAddress base58check-encodes a public-key hash.
func EncodeAddress(hash ids.ShortID) string {
	payload := append([]byte{0x00}, hash.Bytes()...)
	checksum := sha256.Sum256(payload)
	checksum = sha256.Sum256(checksum[:])
	full := append(payload, checksum[:4]...)
	return base58.Encode(full)
}

// DecodeAddress reverses EncodeAddress, validating the checksum.
func DecodeAddress(addr string) (ids.ShortID, error) {
	full, err := base58.Decode(addr)
	if err != nil {
		return ids.ShortID{}, err
	}
	if len(full) != 25 {
		return ids.ShortID{}, errors.New("crypto: bad address length")
	}
	payload, checksum := full[:21], full[21:]
	want := sha256.Sum256(payload)
	want = sha256.Sum256(want[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != want[i] {
			return ids.ShortID{}, errors.New("crypto: bad address checksum")
		}
	}
	return ids.ShortIDFromBytes(payload[1:])
}

// Hash256 is the canonical double-SHA256 used for txids and Merkle
// leaves throughout chain and merkle.
func Hash256(b []byte) ids.ID {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second
}

// RandomNodeIdentitySeed returns cryptographically random seed material
// for node identity derivation (used by the bip32-based derivation in
// derive.go when a node wants a deterministic hierarchy instead of a
// single ad-hoc key).
func RandomNodeIdentitySeed() ([]byte, error) {
	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	return seed, err
}
