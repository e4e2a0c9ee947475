package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grekinsky/lorachain-sub002/chain"
	"github.com/grekinsky/lorachain-sub002/crypto"
	"github.com/grekinsky/lorachain-sub002/delivery"
	"github.com/grekinsky/lorachain-sub002/fragment"
	"github.com/grekinsky/lorachain-sub002/genesis"
	"github.com/grekinsky/lorachain-sub002/ids"
	"github.com/grekinsky/lorachain-sub002/ledger"
	"github.com/grekinsky/lorachain-sub002/logging"
	"github.com/grekinsky/lorachain-sub002/mesh"
	"github.com/grekinsky/lorachain-sub002/metrics"
	"github.com/grekinsky/lorachain-sub002/peer"
	"github.com/grekinsky/lorachain-sub002/routing"
	"github.com/grekinsky/lorachain-sub002/store"
)

// keystoreVerifier adapts a peer.Keystore into routing.Verifier and
// fragment/ACK verification, resolving the claimed signer's key instead
// of trusting signature presence alone (spec §9 resolved Open
// Question).
type keystoreVerifier struct {
	keys *peer.Keystore
}

func (v keystoreVerifier) VerifyRoute(r routing.Route) bool {
	pub, ok := v.keys.Lookup(r.NextHop)
	if !ok {
		return false
	}
	return crypto.Verify(pub, r.SignedContent(), r.Signature)
}

// PublicKey satisfies fragment.KeyResolver against the same keystore.
func (v keystoreVerifier) PublicKey(node ids.NodeID) (*btcec.PublicKey, bool) {
	return v.keys.Lookup(node)
}

// Node bundles every subsystem a running instance needs, constructed
// once at startup and torn down once via Shutdown (spec §5).
type Node struct {
	Log      logging.Logger
	KV       store.KV
	Chain    *chain.Chain
	Genesis  genesis.Config
	Ledger   *ledger.Service
	Identity *crypto.KeyPair
	NodeID   ids.NodeID
	Keystore *peer.Keystore
	BanList  *peer.BanList
	Offenses *peer.OffenseTracker
	Pool     *peer.Pool
	Registry *peer.Registry
	Routes   *routing.Table
	Fragments *fragment.Fragmenter
	Tracker  *delivery.Tracker
	Bus      *mesh.Bus
	Metrics  *metrics.Delivery

	cfg NodeConfig
}

// NewNode wires every subsystem constructor in the order spec §5
// describes: storage, chain/genesis, then the mesh/peer/routing/
// delivery layers above it, all sharing one logger and one metrics
// registerer (mirroring the teacher's node.New threading a single
// *prometheus.Registry through every subsystem's constructor).
func NewNode(cfg NodeConfig, log logging.Logger, reg prometheus.Registerer) (*Node, error) {
	if log == nil {
		log = logging.NoLog
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: creating data dir: %w", err)
	}
	kv, err := store.OpenPebble(filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return nil, fmt.Errorf("config: opening store: %w", err)
	}

	gcfg, err := genesis.Load(kv, cfg.ChainID)
	if err != nil {
		if cfg.GenesisPath == "" {
			kv.Close()
			return nil, fmt.Errorf("config: no genesis stored for %q and no --genesis-file given: %w", cfg.ChainID, err)
		}
		gcfg, err = loadGenesisFile(cfg.GenesisPath)
		if err != nil {
			kv.Close()
			return nil, err
		}
		if err := genesis.Store(kv, gcfg); err != nil {
			kv.Close()
			return nil, err
		}
	}

	c, err := chain.LoadFromStore(kv, log.With(), gcfg.DifficultyParams(), time.Now())
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("config: replaying persisted chain: %w", err)
	}
	if c.Len() == 0 {
		if err := c.Apply(gcfg.Block(), time.Now()); err != nil {
			kv.Close()
			return nil, fmt.Errorf("config: applying genesis block: %w", err)
		}
	}

	ledgerSvc := ledger.NewService(c, ledger.DefaultFeeRatePolicy, log)

	identity, err := crypto.LoadOrCreateIdentity(kv)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("config: loading node identity: %w", err)
	}
	nodeID := crypto.NodeID(identity.Pub)

	keys := peer.NewKeystore()
	keys.Register(nodeID, identity.Pub)
	banList := peer.NewBanList(peer.DefaultBanListConfig())
	pool := peer.NewPool(peer.PoolConfig{
		MaxOutbound: cfg.MaxOutboundPeers,
		MaxInbound:  cfg.MaxInboundPeers,
	})
	registry := peer.NewRegistry(cfg.MaxDiscovery, banList, log)
	routeTable := routing.NewTable(routing.DefaultConfig(), keystoreVerifier{keys: keys})

	// offenses is the sliding-window escalation path from every
	// protocol-violation detection point (fragment, ledger, routing) to
	// BanList, and the invalid_messages attribution path back to the
	// discovery registry (spec §4.9, §7).
	offenses := peer.NewOffenseTracker(peer.DefaultOffenseTrackerConfig(), banList, registry, registry)
	routeTable.AttachReporter(offenses)
	ledgerSvc.AttachMisbehaviorSink(offenses)

	deliveryMetrics, err := metrics.NewDelivery(reg, "lorachain")
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("config: registering delivery metrics: %w", err)
	}
	tracker := delivery.NewTracker(delivery.DefaultQoSPolicies(), log, deliveryMetrics)

	fragmentMetrics, err := metrics.NewFragment(reg, "lorachain")
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("config: registering fragment metrics: %w", err)
	}
	fragments := fragment.New(fragment.DefaultConfig(), log, fragmentMetrics, keystoreVerifier{keys: keys}, offenses)
	fragments.AttachStore(kv)
	if err := fragment.RestoreSessions(fragments, kv); err != nil {
		kv.Close()
		return nil, fmt.Errorf("config: restoring fragment sessions: %w", err)
	}

	bus := mesh.NewBus(64)

	return &Node{
		Log:       log,
		KV:        kv,
		Chain:     c,
		Genesis:   gcfg,
		Ledger:    ledgerSvc,
		Identity:  identity,
		NodeID:    nodeID,
		Keystore:  keys,
		BanList:   banList,
		Offenses:  offenses,
		Pool:      pool,
		Registry:  registry,
		Routes:    routeTable,
		Fragments: fragments,
		Tracker:   tracker,
		Bus:       bus,
		Metrics:   deliveryMetrics,
		cfg:       cfg,
	}, nil
}

// Shutdown runs mesh.Shutdown (fail deliveries due for retry, close the
// connection pool, persist the ban list and discovery cache), then
// closes the store (spec §5's final sequencing step).
func (n *Node) Shutdown(now time.Time) error {
	if err := mesh.Shutdown(context.Background(), n.Tracker, n.Pool, n.BanList, n.Registry, n.KV, n.Log, now); err != nil {
		return err
	}
	return n.KV.Close()
}

func loadGenesisFile(path string) (genesis.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return genesis.Config{}, fmt.Errorf("config: reading genesis file: %w", err)
	}
	var gcfg genesis.Config
	if err := json.Unmarshal(b, &gcfg); err != nil {
		return genesis.Config{}, fmt.Errorf("config: parsing genesis file: %w", err)
	}
	if err := gcfg.Validate(); err != nil {
		return genesis.Config{}, err
	}
	return gcfg, nil
}
