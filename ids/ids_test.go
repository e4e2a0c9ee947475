package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDRoundTripsThroughBytesAndString(t *testing.T) {
	require := require.New(t)
	var id ID
	id[0] = 0xde
	id[31] = 0xef

	got, err := IDFromBytes(id.Bytes())
	require.NoError(err)
	require.Equal(id, got)

	got, err = IDFromString(id.String())
	require.NoError(err)
	require.Equal(id, got)
}

func TestIDFromBytesRejectsWrongLength(t *testing.T) {
	require := require.New(t)
	_, err := IDFromBytes([]byte{1, 2, 3})
	require.Error(err)
}

func TestIDIsZero(t *testing.T) {
	require := require.New(t)
	var id ID
	require.True(id.IsZero())
	id[5] = 1
	require.False(id.IsZero())
}

func TestNodeIDStringHasPrefix(t *testing.T) {
	require := require.New(t)
	var n NodeID
	n[0] = 1
	require.Contains(n.String(), "NodeID-")
}

func TestNodeIDFromBytesRejectsWrongLength(t *testing.T) {
	require := require.New(t)
	_, err := NodeIDFromBytes(make([]byte, 19))
	require.Error(err)
}

func TestShortIDRoundTrip(t *testing.T) {
	require := require.New(t)
	var s ShortID
	s[0] = 7
	got, err := ShortIDFromBytes(s.Bytes())
	require.NoError(err)
	require.Equal(s, got)
}

func TestMessageIDRoundTrip(t *testing.T) {
	require := require.New(t)
	var m MessageID
	m[0] = 3
	got, err := MessageIDFromBytes(m.Bytes())
	require.NoError(err)
	require.Equal(m, got)
}

func TestGenerateMessageIDIsNotEmptyAndVaries(t *testing.T) {
	require := require.New(t)
	a := GenerateMessageID()
	b := GenerateMessageID()
	require.NotEqual(EmptyMessageID, a)
	require.NotEqual(a, b)
}
