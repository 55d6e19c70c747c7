// Command auctiond runs the auction daemon: it loads configuration, wires
// the engine to its store, custody and registry backends, and serves the
// request protocol until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cloudmarket-io/auctionhouse/auction"
	"github.com/cloudmarket-io/auctionhouse/config"
	"github.com/cloudmarket-io/auctionhouse/custody"
	"github.com/cloudmarket-io/auctionhouse/journal"
	"github.com/cloudmarket-io/auctionhouse/registry"
	"github.com/cloudmarket-io/auctionhouse/server"
	"github.com/cloudmarket-io/auctionhouse/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional; env vars under AUCTIONHOUSE_ also apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctiond: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.DebugLogging {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "auctiond: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("daemon exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	var store auction.Store
	switch cfg.StoreBackend {
	case "sqlite":
		sqliteStore, err := storage.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
	default:
		store = auction.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	var sink auction.EventSink
	if cfg.JournalPath != "" {
		eventJournal, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer eventJournal.Close()
		sink = eventJournal
		logger.Info("journaling events", zap.String("path", cfg.JournalPath))
	}

	var tokens registry.TokenRegistry
	if len(cfg.AcceptedTokens) > 0 {
		tokens = registry.NewMemoryTokenRegistry(cfg.AcceptedTokens...)
	}

	engine, err := auction.NewEngine(auction.EngineConfig{
		Store:     store,
		Ledger:    custody.NewMemoryLedger(),
		Assets:    custody.NewMemoryAssetRegistry(),
		Addresses: registry.NewMemoryAddressRegistry(cfg.FeeRecipient),
		Tokens:    tokens,
		Params: auction.Params{
			MinBidIncrement: cfg.Increment(),
			PlatformFeeBps:  cfg.PlatformFeeBps,
			EscrowAccount:   cfg.EscrowAccount,
			Admin:           cfg.AdminAddress,
		},
		Events: sink,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(engine, logger, server.Options{
		Transport:  cfg.ListenTransport,
		Addr:       cfg.ListenAddr,
		VsockPort:  cfg.VsockPort,
		MaxWorkers: cfg.MaxWorkers,
	})
	return srv.Run(ctx)
}
