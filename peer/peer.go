// Package peer implements the L10 peer manager: discovery, scoring,
// ban list, and connection pool (spec §4.9). Its shape — an ID/State
// accessor surface with the owning manager as the only mutator — is
// grounded on the teacher's network/peer.Peer interface, generalized
// from a single TCP connection's lifecycle to a mesh participant's
// lifecycle.
package peer

import (
	"time"

	"github.com/grekinsky/lorachain-sub002/ids"
)

// Type is the peer's advertised node class (spec §3 Peer).
type Type uint8

const (
	LightNode Type = iota
	FullNode
)

// ConnectionState mirrors spec §3 Peer's connection_state enum.
type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Disconnecting
	Failed
)

// DiscoveryMethod records how a peer was first found (spec §4.9).
type DiscoveryMethod uint8

const (
	DiscoveryDNSSeed DiscoveryMethod = iota
	DiscoveryMDNS
	DiscoveryMeshAnnounce
	DiscoveryPeerExchange
)

// Peer is one known mesh participant (spec §3 Peer). It is a plain data
// record; all mutation happens through Registry's and Pool's methods, never
// directly on a Peer value held by a caller (spec §5 ownership rule).
type Peer struct {
	ID              ids.NodeID
	Address         string
	Port            int
	Type            Type
	DiscoveryMethod DiscoveryMethod
	DiscoveredAt    time.Time
	LastSeen        time.Time
	ConnectionState ConnectionState
	ConnectionAttempts int
	LatencyMs       float64
	PacketLoss      float64
	SignalStrength  *float64 // dBm, nil when unknown (wired transport)
	HopCount        *int     // nil over direct/internet transport

	Reputation float64
	Score      float64
	Reliability float64

	MessagesSent     int
	MessagesReceived int
	MessagesInvalid  int
	BlocksPropagated int
	TxPropagated     int

	Banned    bool
	BanExpires *time.Time
}

func (p Peer) idle(now time.Time) time.Duration {
	return now.Sub(p.LastSeen)
}
