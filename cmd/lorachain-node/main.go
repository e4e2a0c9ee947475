// Command lorachain-node runs a single Lorachain mesh node: TCP/
// WebSocket gateway plus LoRa radio transport sharing one ledger and
// mesh protocol stack. Grounded on the teacher's main/main.go
// flag-parse/config-resolve/run shape (pflag + viper), adapted from a
// multi-VM node runner to this project's single-process node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grekinsky/lorachain-sub002/config"
	"github.com/grekinsky/lorachain-sub002/logging"
)

func main() {
	fs := config.BuildFlagSet()
	v, err := config.BuildViper(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Printf("couldn't configure flags: %s\n", err)
		os.Exit(1)
	}

	nodeConfig, err := config.GetNodeConfig(v)
	if err != nil {
		fmt.Printf("couldn't load node config: %s\n", err)
		os.Exit(1)
	}

	zapLogger, err := buildZapLogger(nodeConfig.LogLevel)
	if err != nil {
		fmt.Printf("couldn't build logger: %s\n", err)
		os.Exit(1)
	}
	log := logging.NewZap(zapLogger, nodeConfig.LogVerbose)

	registry := prometheus.NewRegistry()
	node, err := config.NewNode(nodeConfig, log, registry)
	if err != nil {
		log.Fatal("failed to initialize node", zap.Error(err))
		os.Exit(1)
	}
	log.Info("node initialized",
		zap.String("chainId", node.Genesis.ChainID),
		zap.Uint64("height", node.Chain.Height()),
		zap.String("region", nodeConfig.Region.Name),
		zap.String("listen", nodeConfig.ListenAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutdown signal received, draining", zap.Duration("grace", nodeConfig.ShutdownGrace))
	done := make(chan error, 1)
	go func() { done <- node.Shutdown(time.Now()) }()
	select {
	case err := <-done:
		if err != nil {
			log.Error("shutdown did not complete cleanly", zap.Error(err))
			os.Exit(1)
		}
		log.Info("shutdown complete")
	case <-time.After(nodeConfig.ShutdownGrace):
		log.Warn("shutdown grace period exceeded, exiting anyway")
	}
}

func buildZapLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch level {
	case "verbo", "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	case "fatal":
		lvl = zapcore.FatalLevel
	default:
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
