package mesh

import "time"

// Strategy is the transport strategy chosen for a sync session (spec
// §4.10).
type Strategy int

const (
	StrategyInternet Strategy = iota
	StrategyMesh
	StrategyHybrid
)

func (s Strategy) String() string {
	switch s {
	case StrategyInternet:
		return "internet"
	case StrategyMesh:
		return "mesh"
	case StrategyHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// TransportProbe is the result of probing one transport's availability
// and quality, used to drive strategy selection (spec §4.10:
// "selection is driven by probing both transports").
type TransportProbe struct {
	Available bool
	RTT       time.Duration
}

// SelectStrategy picks Hybrid when the internet is available and there
// are mesh-only peers to relay to (the mesh probe is not consulted in
// that case), Internet when the internet is available otherwise, and
// Mesh in every other case, including when neither transport is
// available (spec §4.10: "Hybrid (gateway: internet-download then
// mesh-relay)").
func SelectStrategy(internet, mesh TransportProbe, hasMeshOnlyPeers bool) Strategy {
	switch {
	case internet.Available && hasMeshOnlyPeers:
		return StrategyHybrid
	case internet.Available:
		return StrategyInternet
	case mesh.Available:
		return StrategyMesh
	default:
		return StrategyMesh
	}
}
