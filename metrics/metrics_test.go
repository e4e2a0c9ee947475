package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewFragmentRegistersAllCollectors(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()
	m, err := NewFragment(reg, "lorachain")
	require.NoError(err)
	require.NotNil(m.SessionsStarted)

	count, err := testGatherCount(reg)
	require.NoError(err)
	require.Equal(6, count)
}

func TestNewDeliveryRegistersAllCollectors(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()
	_, err := NewDelivery(reg, "lorachain")
	require.NoError(err)

	count, err := testGatherCount(reg)
	require.NoError(err)
	require.Equal(6, count)
}

func TestNewPeerRegistersAllCollectors(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()
	_, err := NewPeer(reg, "lorachain")
	require.NoError(err)

	count, err := testGatherCount(reg)
	require.NoError(err)
	require.Equal(4, count)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()
	_, err := NewFragment(reg, "lorachain")
	require.NoError(err)
	_, err = NewFragment(reg, "lorachain")
	require.Error(err, "registering the same collector names twice must fail")
}

func testGatherCount(reg *prometheus.Registry) (int, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	return len(families), nil
}
