package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	require := require.New(t)
	kp, err := GenerateKeyPair()
	require.NoError(err)

	msg := []byte("lorachain transaction digest")
	sig, err := kp.Sign(msg)
	require.NoError(err)
	require.True(Verify(kp.Pub, msg, sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	require := require.New(t)
	kp, err := GenerateKeyPair()
	require.NoError(err)
	other, err := GenerateKeyPair()
	require.NoError(err)

	msg := []byte("payload")
	sig, err := kp.Sign(msg)
	require.NoError(err)
	require.False(Verify(other.Pub, msg, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	require := require.New(t)
	kp, err := GenerateKeyPair()
	require.NoError(err)

	sig, err := kp.Sign([]byte("original"))
	require.NoError(err)
	require.False(Verify(kp.Pub, []byte("tampered"), sig))
}

func TestAddressRoundTripsThroughEncodeDecode(t *testing.T) {
	require := require.New(t)
	kp, err := GenerateKeyPair()
	require.NoError(err)

	addr := kp.Address()
	hash, err := DecodeAddress(addr)
	require.NoError(err)
	require.Equal(PubKeyHash(kp.Pub), hash)
}

func TestDecodeAddressRejectsBadChecksum(t *testing.T) {
	require := require.New(t)
	kp, err := GenerateKeyPair()
	require.NoError(err)
	addr := []byte(kp.Address())
	addr[len(addr)-1]++

	_, err = DecodeAddress(string(addr))
	require.Error(err)
}

func TestHash256IsDeterministicAndDiffers(t *testing.T) {
	require := require.New(t)
	a := Hash256([]byte("a"))
	b := Hash256([]byte("a"))
	c := Hash256([]byte("b"))
	require.Equal(a, b)
	require.NotEqual(a, c)
}

func TestNodeIdentityDeriveIsDeterministic(t *testing.T) {
	require := require.New(t)
	seed, err := RandomNodeIdentitySeed()
	require.NoError(err)

	id1, err := NewNodeIdentity(seed)
	require.NoError(err)
	id2, err := NewNodeIdentity(seed)
	require.NoError(err)

	kp1, err := id1.Derive(0)
	require.NoError(err)
	kp2, err := id2.Derive(0)
	require.NoError(err)
	require.Equal(kp1.Pub.SerializeCompressed(), kp2.Pub.SerializeCompressed())

	kp3, err := id1.Derive(1)
	require.NoError(err)
	require.NotEqual(kp1.Pub.SerializeCompressed(), kp3.Pub.SerializeCompressed())
}
