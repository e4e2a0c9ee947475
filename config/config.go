// Package config parses node configuration from flags, environment
// variables, and an optional config file into the typed settings every
// subsystem constructor needs. Grounded on the teacher's
// config.BuildFlagSet/BuildViper layering (main/main.go), generalized
// from avalanchego's node/runner config split to this project's single
// node process.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/grekinsky/lorachain-sub002/dutycycle"
)

// Keys mirror the flag names registered in BuildFlagSet; viper binds
// both flags and LORACHAIN_-prefixed environment variables to them.
const (
	KeyDataDir        = "data-dir"
	KeyChainID        = "chain-id"
	KeyGenesisPath    = "genesis-file"
	KeyListenAddr     = "listen-address"
	KeyRegion         = "lora-region"
	KeyMaxOutbound    = "max-outbound-peers"
	KeyMaxInbound     = "max-inbound-peers"
	KeyMaxDiscovery   = "max-discovery-peers"
	KeyLogLevel       = "log-level"
	KeyLogVerbose     = "log-verbose"
	KeyMetricsAddr    = "metrics-address"
	KeyShutdownGrace  = "shutdown-grace"
)

// BuildFlagSet registers every node flag, mirroring the teacher's
// config.BuildFlagSet single-source-of-truth for flags vs. the viper
// config it feeds.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("lorachain-node", pflag.ContinueOnError)
	fs.String(KeyDataDir, "./data", "directory holding the node's persistent store")
	fs.String(KeyChainID, "lorachain-mainnet", "genesis chain_id to load or initialize")
	fs.String(KeyGenesisPath, "", "path to a genesis JSON file to seed on first start")
	fs.String(KeyListenAddr, "0.0.0.0:9651", "TCP/WebSocket gateway listen address")
	fs.String(KeyRegion, "EU868", "LoRa regulatory region profile (EU868, US915)")
	fs.Int(KeyMaxOutbound, 8, "maximum simultaneous outbound peer connections")
	fs.Int(KeyMaxInbound, 32, "maximum simultaneous inbound peer connections")
	fs.Int(KeyMaxDiscovery, 64, "maximum tracked discovery candidates")
	fs.String(KeyLogLevel, "info", "minimum log level (verbo, debug, info, warn, error, fatal)")
	fs.Bool(KeyLogVerbose, false, "enable verbo-level tracing")
	fs.String(KeyMetricsAddr, "127.0.0.1:9090", "Prometheus /metrics listen address")
	fs.Duration(KeyShutdownGrace, 10*time.Second, "grace period for draining deliveries on shutdown")
	return fs
}

// BuildViper binds fs and the environment into a single resolved view,
// mirroring the teacher's config.BuildViper(fs, args).
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix("LORACHAIN")
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// NodeConfig is the fully resolved, typed configuration every
// subsystem constructor consumes (spec §4/§5 ambient wiring).
type NodeConfig struct {
	DataDir          string
	ChainID          string
	GenesisPath      string
	ListenAddr       string
	Region           dutycycle.Region
	MaxOutboundPeers int
	MaxInboundPeers  int
	MaxDiscovery     int
	LogLevel         string
	LogVerbose       bool
	MetricsAddr      string
	ShutdownGrace    time.Duration
}

// regionByName resolves the spec's named regulatory profiles; an
// unknown name is a configuration error rather than a silent fallback.
func regionByName(name string) (dutycycle.Region, error) {
	switch name {
	case "EU868", "":
		return dutycycle.EURegion(), nil
	case "US915":
		// US915 has no duty-cycle restriction but a dwell-time limit;
		// modeled here as a 100% duty fraction over the same one-hour
		// window as EU868. The per-transmission dwell limit itself is
		// not enforced by dutycycle.Gate.
		return dutycycle.Region{
			Name:         "US915",
			DutyFraction: 1.0,
			EffectiveBps: 5470,
			WindowPeriod: time.Hour,
		}, nil
	default:
		return dutycycle.Region{}, fmt.Errorf("config: unknown lora-region %q", name)
	}
}

// GetNodeConfig resolves v into a NodeConfig, validating the region
// name (mirroring the teacher's config.GetNodeConfig(v, ...) step that
// follows BuildViper).
func GetNodeConfig(v *viper.Viper) (NodeConfig, error) {
	region, err := regionByName(v.GetString(KeyRegion))
	if err != nil {
		return NodeConfig{}, err
	}
	return NodeConfig{
		DataDir:          v.GetString(KeyDataDir),
		ChainID:          v.GetString(KeyChainID),
		GenesisPath:      v.GetString(KeyGenesisPath),
		ListenAddr:       v.GetString(KeyListenAddr),
		Region:           region,
		MaxOutboundPeers: v.GetInt(KeyMaxOutbound),
		MaxInboundPeers:  v.GetInt(KeyMaxInbound),
		MaxDiscovery:     v.GetInt(KeyMaxDiscovery),
		LogLevel:         v.GetString(KeyLogLevel),
		LogVerbose:       v.GetBool(KeyLogVerbose),
		MetricsAddr:      v.GetString(KeyMetricsAddr),
		ShutdownGrace:    v.GetDuration(KeyShutdownGrace),
	}, nil
}
